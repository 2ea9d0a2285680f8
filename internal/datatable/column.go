package datatable

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Column describes one field of T. Value may return nil for an absent value.
type Column[T any] struct {
	Key      string
	Label    string
	Sortable bool
	Value    func(T) any
}

func findColumn[T any](cols []Column[T], key string) (Column[T], bool) {
	for _, c := range cols {
		if c.Key == key {
			return c, true
		}
	}
	return Column[T]{}, false
}

// SortRows stably sorts rows by col. Absent values go last in both
// directions.
func SortRows[T any](rows []T, col Column[T], dir Direction) {
	if col.Value == nil {
		return
	}
	slices.SortStableFunc(rows, func(a, b T) int {
		va, vb := col.Value(a), col.Value(b)
		na, nb := isAbsent(va), isAbsent(vb)
		switch {
		case na && nb:
			return 0
		case na:
			return 1
		case nb:
			return -1
		}
		c := compareValues(va, vb)
		if dir == Descending {
			return -c
		}
		return c
	})
}

// FilterRows keeps rows whose col value contains term, case-insensitively.
// An empty term keeps everything.
func FilterRows[T any](rows []T, col Column[T], term string) []T {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" || col.Value == nil {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v := col.Value(r)
		if isAbsent(v) {
			continue
		}
		if strings.Contains(strings.ToLower(stringify(v)), term) {
			out = append(out, r)
		}
	}
	return out
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	return rv.Interface()
}

func stringify(v any) string {
	v = deref(v)
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func compareValues(a, b any) int {
	a, b = deref(a), deref(b)
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return cmp.Compare(x, y)
		}
	case int:
		if y, ok := b.(int); ok {
			return cmp.Compare(x, y)
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmp.Compare(x, y)
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmp.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return cmp.Compare(stringify(a), stringify(b))
}
