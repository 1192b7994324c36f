package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// ErrNotNumeric is returned when a value cannot be read as a number.
var ErrNotNumeric = errors.New("value is not numeric")

// Money reads v as a monetary amount rounded to 2 decimal places. NULL is 0.
func Money(v any) (float64, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	return d.Round(2).InexactFloat64(), nil
}

// Int reads v as an integer, truncating any fractional part. NULL is 0.
func Int(v any) (int64, error) {
	d, err := toDecimal(v)
	if err != nil {
		return 0, err
	}
	return d.IntPart(), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, nil
		}
		return *x, nil
	case pgtype.Numeric:
		return numericDecimal(x)
	case *pgtype.Numeric:
		if x == nil {
			return decimal.Zero, nil
		}
		return numericDecimal(*x)
	case *big.Rat:
		if x == nil {
			return decimal.Zero, nil
		}
		return parseDecimal(x.FloatString(16))
	case *big.Float:
		if x == nil {
			return decimal.Zero, nil
		}
		f, _ := x.Float64()
		return floatDecimal(f)
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int8:
		return decimal.NewFromInt(int64(x)), nil
	case int16:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint8:
		return decimal.NewFromInt(int64(x)), nil
	case uint16:
		return decimal.NewFromInt(int64(x)), nil
	case uint32:
		return decimal.NewFromInt(int64(x)), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case float32:
		return floatDecimal(float64(x))
	case float64:
		return floatDecimal(x)
	case json.Number:
		return parseDecimal(x.String())
	case []byte:
		return parseDecimal(string(x))
	case string:
		return parseDecimal(x)
	}
	return decimal.Zero, fmt.Errorf("%w: %T", ErrNotNumeric, v)
}

func numericDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Zero, fmt.Errorf("%w: non-finite numeric", ErrNotNumeric)
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func floatDecimal(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrNotNumeric, f)
	}
	return decimal.NewFromFloat(f), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, s)
	}
	return d, nil
}
