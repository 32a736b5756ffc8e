package node

import (
	"fmt"
	"strconv"
	"time"

	"github.com/afoeder/typo3cr/internal/crerr"
)

// Value is the stored, lexical form of a scalar property value.
//
// Backends persist values as text together with a PropertyType. The getters
// convert the lexical form on demand, the way JCR values do.
type Value struct {
	lexical string
}

// NewValue wraps a lexical value as read from storage.
func NewValue(lexical string) Value {
	return Value{lexical: lexical}
}

// StringValue creates a value from a string.
func StringValue(s string) Value { return Value{lexical: s} }

// LongValue creates a value from an integer.
func LongValue(n int64) Value { return Value{lexical: strconv.FormatInt(n, 10)} }

// DoubleValue creates a value from a float.
func DoubleValue(f float64) Value { return Value{lexical: strconv.FormatFloat(f, 'g', -1, 64)} }

// BooleanValue creates a value from a bool.
func BooleanValue(b bool) Value { return Value{lexical: strconv.FormatBool(b)} }

// DateLayout is the stored form of dates: UTC with a fixed-width fraction, so
// lexical order equals chronological order.
const DateLayout = "2006-01-02T15:04:05.000000000Z"

// DateValue creates a value from a time, stored in DateLayout.
func DateValue(t time.Time) Value { return Value{lexical: t.UTC().Format(DateLayout)} }

// String returns the lexical form.
func (v Value) String() string { return v.lexical }

// Boolean parses the value as a bool.
func (v Value) Boolean() (bool, error) {
	b, err := strconv.ParseBool(v.lexical)
	if err != nil {
		return false, fmt.Errorf("value %q is not a boolean: %w", v.lexical, err)
	}
	return b, nil
}

// Long parses the value as a 64-bit integer.
func (v Value) Long() (int64, error) {
	n, err := strconv.ParseInt(v.lexical, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a long: %w", v.lexical, err)
	}
	return n, nil
}

// Double parses the value as a float.
func (v Value) Double() (float64, error) {
	f, err := strconv.ParseFloat(v.lexical, 64)
	if err != nil {
		return 0, fmt.Errorf("value %q is not a double: %w", v.lexical, err)
	}
	return f, nil
}

// Date parses the value as an RFC 3339 timestamp.
func (v Value) Date() (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, v.lexical)
	if err != nil {
		return time.Time{}, fmt.Errorf("value %q is not a date: %w", v.lexical, err)
	}
	return t, nil
}

// NativeValue converts a stored value into its native Go form according to
// the declared storage type:
//
//	Boolean          -> bool
//	Date             -> time.Time
//	Decimal, Double  -> float64
//	Long             -> int64
//	String           -> string
//
// Any other type is rejected with an UNSUPPORTED_TYPE error naming the type.
// The set is closed on purpose.
func NativeValue(v Value, t PropertyType) (any, error) {
	switch t {
	case TypeBoolean:
		return v.Boolean()
	case TypeDate:
		return v.Date()
	case TypeDecimal, TypeDouble:
		return v.Double()
	case TypeLong:
		return v.Long()
	case TypeString:
		return v.String(), nil
	default:
		return nil, crerr.UnsupportedType(t.String(), "cannot be mapped to a native value")
	}
}

// ValueOf converts a native Go value into a Value and its storage type.
// It is the inverse of NativeValue and is used when writing nodes.
func ValueOf(native any) (Value, PropertyType, error) {
	switch v := native.(type) {
	case bool:
		return BooleanValue(v), TypeBoolean, nil
	case time.Time:
		return DateValue(v), TypeDate, nil
	case float64:
		return DoubleValue(v), TypeDouble, nil
	case float32:
		return DoubleValue(float64(v)), TypeDouble, nil
	case int:
		return LongValue(int64(v)), TypeLong, nil
	case int64:
		return LongValue(v), TypeLong, nil
	case int32:
		return LongValue(int64(v)), TypeLong, nil
	case string:
		return StringValue(v), TypeString, nil
	default:
		return Value{}, TypeUndefined, crerr.UnsupportedType(fmt.Sprintf("%T", native), "has no storage representation")
	}
}

// Canonicalize rewrites v into the stored form of t and rejects values that do
// not parse as t. Decimals keep their lexical form to preserve precision.
func Canonicalize(v Value, t PropertyType) (Value, error) {
	switch t {
	case TypeBoolean:
		b, err := v.Boolean()
		if err != nil {
			return Value{}, err
		}
		return BooleanValue(b), nil
	case TypeDate:
		d, err := v.Date()
		if err != nil {
			return Value{}, err
		}
		return DateValue(d), nil
	case TypeLong:
		n, err := v.Long()
		if err != nil {
			return Value{}, err
		}
		return LongValue(n), nil
	case TypeDouble:
		f, err := v.Double()
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(f), nil
	case TypeDecimal:
		if _, err := v.Double(); err != nil {
			return Value{}, err
		}
		return v, nil
	default:
		return v, nil
	}
}
