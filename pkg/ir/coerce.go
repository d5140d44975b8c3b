package ir

import (
	"math"

	"github.com/plcsim/stcore/pkg/fault"
	"github.com/plcsim/stcore/pkg/mem"
)

// ---------------------------------------------------------------------------
// Value coercion
// ---------------------------------------------------------------------------
// Coerce adapts a computed value to a destination's declared type before
// a write: integer types truncate toward zero and clamp into their
// domain, float types require finiteness, durations truncate to whole
// milliseconds, and strings clamp to the declared length (truncating or
// failing per the caller's option). The same rules validate schema
// default values.

// ZeroValue returns the initial value for a declared type.
func ZeroValue(t DataType, strLen int) Value {
	switch t {
	case TypeBool:
		return Bool(false)
	case TypeString:
		return String("")
	case TypeLInt:
		return LInt(0)
	}
	return Number(t, 0)
}

// Coerce converts v to destination type t. strLen is the declared
// STRING length (0 means the default capacity); truncateStrings selects
// truncation over rejection for over-long strings.
func Coerce(t DataType, strLen int, v Value, truncateStrings bool) (Value, error) {
	switch t {
	case TypeBool:
		if v.Type == TypeString {
			return Value{}, fault.New(fault.TypeMismatch, "cannot write STRING value to BOOL")
		}
		return Bool(v.IsTruthy()), nil

	case TypeString:
		if v.Type != TypeString {
			return Value{}, fault.New(fault.TypeMismatch, "cannot write %s value to STRING", v.Type)
		}
		max := strLen
		if max <= 0 {
			max = mem.DefaultStringLen
		}
		s := v.S
		if len(s) > max {
			if !truncateStrings {
				return Value{}, fault.New(fault.OutOfRange,
					"string of length %d exceeds STRING[%d]", len(s), max)
			}
			s = s[:max]
		}
		return String(s), nil

	case TypeReal, TypeLReal:
		if v.Type == TypeString {
			return Value{}, fault.New(fault.TypeMismatch, "cannot write STRING value to %s", t)
		}
		f := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fault.New(fault.OutOfRange, "non-finite value for %s", t)
		}
		if t == TypeReal {
			f = float64(float32(f))
		}
		return Number(t, f), nil

	case TypeLInt:
		if v.Type == TypeString {
			return Value{}, fault.New(fault.TypeMismatch, "cannot write STRING value to LINT")
		}
		return LInt(clampToInt64(v)), nil
	}

	// Remaining integer-backed types (BYTE..DINT, TIME, DATE, TOD).
	if v.Type == TypeString {
		return Value{}, fault.New(fault.TypeMismatch, "cannot write STRING value to %s", t)
	}
	min, max, ok := t.IntegerRange()
	if !ok {
		return Value{}, fault.New(fault.TypeMismatch, "cannot coerce to %s", t)
	}
	i := clampToInt64(v)
	if i < min {
		i = min
	} else if i > max {
		i = max
	}
	return Number(t, float64(i)), nil
}

// clampToInt64 truncates toward zero onto the int64 path, saturating
// values outside the representable range.
func clampToInt64(v Value) int64 {
	if v.Type == TypeLInt {
		return v.I
	}
	f := v.AsFloat()
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// ParseConstant parses a default-value literal for a declared type, as
// used by schema field defaults. The literal text follows the same
// grammar as source-level initializers.
func ParseConstant(t DataType, strLen int, text string) (Value, error) {
	var v Value
	var ok bool
	switch t {
	case TypeBool:
		v, ok = parseBoolLiteral(text)
	case TypeString:
		if len(text) >= 2 && (text[0] == '\'' || text[0] == '"') {
			var s string
			if s, ok = parseStringLiteral(text); ok {
				v = String(s)
			}
		} else {
			// Unquoted default text is taken verbatim.
			v, ok = String(text), true
		}
	case TypeTime:
		v, ok = parseTimeLiteral(text)
		if !ok {
			// A bare millisecond count is also accepted.
			v, ok = parseNumber(text, false)
		}
	case TypeDate:
		v, ok = parseDateLiteral(text)
		if !ok {
			v, ok = parseNumber(text, false)
		}
	case TypeTOD:
		v, ok = parseTodLiteral(text)
		if !ok {
			v, ok = parseNumber(text, false)
		}
	default:
		v, ok = parseNumber(text, t == TypeLInt)
	}
	if !ok {
		return Value{}, fault.New(fault.InvalidConfig, "malformed %s default %q", t, text)
	}
	return Coerce(t, strLen, v, false)
}
