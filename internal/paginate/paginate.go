// Package paginate implements cursor pagination over GORM queries ordered
// newest first.
package paginate

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// ErrInvalidCursor is returned when the cursor does not name an existing row.
var ErrInvalidCursor = errors.New("paginate: invalid cursor")

// Page is one slice of a cursor-paginated listing. NextCursor is the id of
// the last item when the page was full, nil otherwise.
type Page[T any] struct {
	Data       []T     `json:"data"`
	NextCursor *string `json:"nextCursor"`
}

// Params are the caller-supplied paging inputs.
type Params struct {
	Limit  int
	Cursor string
}

// ParseLimit converts a query-string limit, applying the default for blank
// or invalid input and capping at MaxLimit.
func ParseLimit(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Find loads the page of T following p.Cursor from q, ordered by creation
// time then id, both descending. q carries any filters and preloads; its
// model table must have id and created_at columns.
func Find[T any](q *gorm.DB, p Params, idOf func(T) string) (Page[T], error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if p.Cursor != "" {
		var anchor struct {
			CreatedAt time.Time
		}
		err := q.Session(&gorm.Session{NewDB: true}).
			Model(new(T)).
			Select("created_at").
			Where("id = ?", p.Cursor).
			Take(&anchor).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Page[T]{}, ErrInvalidCursor
		}
		if err != nil {
			return Page[T]{}, fmt.Errorf("paginate: load cursor %s: %w", p.Cursor, err)
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", anchor.CreatedAt, anchor.CreatedAt, p.Cursor)
	}

	items := make([]T, 0, limit)
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&items).Error; err != nil {
		return Page[T]{}, fmt.Errorf("paginate: find: %w", err)
	}

	page := Page[T]{Data: items}
	if len(items) == limit {
		next := idOf(items[len(items)-1])
		page.NextCursor = &next
	}
	return page, nil
}
