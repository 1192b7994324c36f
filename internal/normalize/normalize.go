// Package normalize turns values read from the relational source into plain
// JSON-safe trees: decimals become float64, JSON held in text or bytes is
// decoded, and containers are rebuilt element by element.
package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Parsed is the outcome of an opportunistic JSON decode. When OK is false,
// Value holds the original text.
type Parsed struct {
	Value any
	OK    bool
}

// ParseJSONText decodes s when it holds a JSON object or array. Scalars such
// as "123" or "true" are left as text so codes and free text never change type.
//
// This is narrower than decoding any valid JSON text: only containers are
// parsed, and bare numbers, booleans, null and quoted strings stay strings.
func ParseJSONText(s string) Parsed {
	t := strings.TrimSpace(s)
	if t == "" || (t[0] != '{' && t[0] != '[') {
		return Parsed{Value: s}
	}

	dec := json.NewDecoder(strings.NewReader(t))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Parsed{Value: s}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Parsed{Value: s}
	}
	return Parsed{Value: v, OK: true}
}

// Value normalizes v recursively.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return x.InexactFloat64()
	case pgtype.Numeric:
		return numericFloat(x)
	case *pgtype.Numeric:
		if x == nil {
			return nil
		}
		return numericFloat(*x)
	case *big.Float:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return f
	case *big.Rat:
		if x == nil {
			return nil
		}
		f, _ := x.Float64()
		return f
	case json.Number:
		return jsonNumber(x)
	case []byte:
		return Value(string(x))
	case string:
		p := ParseJSONText(x)
		if !p.OK {
			return x
		}
		return Value(p.Value)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = Value(e)
		}
		return out
	}
	return reflectContainer(v)
}

func numericFloat(n pgtype.Numeric) any {
	if !n.Valid || n.NaN {
		return nil
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid || math.IsInf(f.Float64, 0) {
		return nil
	}
	return f.Float64
}

func jsonNumber(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// reflectContainer rebuilds typed slices and maps ([]string, map[string]int, ...)
// as []any and map[string]any. Anything else is returned as is.
func reflectContainer(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		fallthrough
	case reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[mapKey(iter.Key())] = Value(iter.Value().Interface())
		}
		return out
	}
	return v
}

func mapKey(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	return fmt.Sprint(k.Interface())
}
