package normalize

import "strings"

// StockList normalizes a per-warehouse stock column. NULL, empty and "null"
// inputs, and anything that does not normalize to a list, yield an empty
// non-nil slice.
func StockList(v any) []any {
	if isBlank(v) {
		return []any{}
	}
	out, ok := Value(v).([]any)
	if !ok || out == nil {
		return []any{}
	}
	return out
}

// List normalizes v and returns it as a list. NULL yields an empty list and a
// scalar yields a one-element list.
func List(v any) []any {
	if isBlank(v) {
		return []any{}
	}
	switch x := Value(v).(type) {
	case nil:
		return []any{}
	case []any:
		return x
	default:
		return []any{x}
	}
}

func isBlank(v any) bool {
	var s string
	switch x := v.(type) {
	case nil:
		return true
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return false
	}
	s = strings.TrimSpace(s)
	return s == "" || s == "null"
}
