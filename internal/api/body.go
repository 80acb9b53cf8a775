package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// looseBody is a JSON object whose fields arrive under several spellings
// and loosely typed, as sent by the quiz and interview pages.
type looseBody map[string]any

func bindLoose(c *gin.Context) (looseBody, error) {
	var b looseBody
	if err := c.ShouldBindJSON(&b); err != nil || b == nil {
		return nil, badRequest("Invalid request body")
	}
	return b, nil
}

// first returns the first key whose value is present and not null.
func (b looseBody) first(keys ...string) any {
	for _, k := range keys {
		if v, ok := b[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// str returns the first non-empty string value among keys, trimmed, or def.
func (b looseBody) str(def string, keys ...string) string {
	for _, k := range keys {
		switch v := b[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64, bool:
			return fmt.Sprint(v)
		}
	}
	return def
}

// num converts the first present value among keys to a finite number,
// accepting numeric strings. Anything else is 0.
func (b looseBody) num(keys ...string) float64 {
	return toNumber(b.first(keys...))
}

// count is num floored and clamped at zero.
func (b looseBody) count(keys ...string) int {
	return int(math.Max(0, math.Floor(b.num(keys...))))
}

// strs returns the first present array among keys as trimmed, non-empty
// strings.
func (b looseBody) strs(keys ...string) []string {
	return toStringArray(b.first(keys...))
}

// object returns the nested object at key, or nil when absent or not an
// object.
func (b looseBody) object(key string) looseBody {
	m, _ := b[key].(map[string]any)
	return m
}

func toNumber(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toStringArray(v any) []string {
	items, ok := v.([]any)
	out := []string{}
	if !ok {
		return out
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func toObjects(v any) []map[string]any {
	items, _ := v.([]any)
	out := []map[string]any{}
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
