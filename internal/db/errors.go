package db

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ConstraintError is a unique or foreign-key violation reported by the
// database. It matches gorm.ErrDuplicatedKey or gorm.ErrForeignKeyViolated
// under errors.Is and keeps the offending column when the driver names it.
type ConstraintError struct {
	Kind  error
	Field string
	Err   error
}

func (e *ConstraintError) Error() string { return e.Err.Error() }

func (e *ConstraintError) Is(target error) bool { return target == e.Kind }

func (e *ConstraintError) Unwrap() error { return e.Err }

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

var mysqlKeyName = regexp.MustCompile(`for key '([^']+)'`)

// TranslateError turns a driver constraint violation on table into a
// *ConstraintError. Other errors are returned unchanged.
func TranslateError(table string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return err
	}

	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry:
			field := ""
			if m := mysqlKeyName.FindStringSubmatch(me.Message); m != nil {
				field = fieldFromIndex(table, m[1])
			}
			return &ConstraintError{Kind: gorm.ErrDuplicatedKey, Field: field, Err: err}
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return &ConstraintError{Kind: gorm.ErrForeignKeyViolated, Err: err}
		}
		return err
	}

	// SQLite reports constraints in the message text only.
	msg := err.Error()
	if _, cols, ok := strings.Cut(msg, "UNIQUE constraint failed: "); ok {
		return &ConstraintError{Kind: gorm.ErrDuplicatedKey, Field: fieldFromColumns(cols), Err: err}
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") {
		return &ConstraintError{Kind: gorm.ErrForeignKeyViolated, Err: err}
	}
	return err
}

// fieldFromColumns turns "users.email" or "post_likes.user_id,
// post_likes.post_id" into "email" or "user_id, post_id".
func fieldFromColumns(cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if _, col, ok := strings.Cut(p, "."); ok {
			p = col
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}

// fieldFromIndex recovers the column from a GORM index name such as
// "users.idx_users_email" or "idx_users_email".
func fieldFromIndex(table, key string) string {
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	switch {
	case key == "PRIMARY":
		return ""
	case table != "" && strings.HasPrefix(key, "idx_"+table+"_"):
		return strings.TrimPrefix(key, "idx_"+table+"_")
	default:
		return strings.TrimPrefix(key, "idx_")
	}
}

// registerErrorTranslation rewrites constraint violations after every
// statement, while the driver error still carries the column.
func registerErrorTranslation(db *gorm.DB) error {
	translate := func(tx *gorm.DB) {
		if tx.Error != nil {
			tx.Error = TranslateError(tx.Statement.Table, tx.Error)
		}
	}
	cb := db.Callback()
	steps := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().After("gorm:create").Register},
		{"update", cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().After("gorm:delete").Register},
		{"raw", cb.Raw().After("gorm:raw").Register},
	}
	for _, s := range steps {
		if err := s.register("campus:translate_error_"+s.name, translate); err != nil {
			return err
		}
	}
	return nil
}
