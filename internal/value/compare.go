package value

import (
	"cmp"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
)

// Compare orders two present values of the same numeric kind
// (DT_SHORT, DT_LONG, DT_LONGLONG, DT_FLOAT, DT_DOUBLE).
// Returns -1, 0 or +1. Any other kind is a TYPE_MISMATCH.
func Compare(a, b Value) (int, error) {
	if a.Type != b.Type {
		return 0, queryerr.TypeMismatch("cannot compare %s with %s", a.Type, b.Type)
	}
	if !a.Type.IsNumeric() {
		return 0, queryerr.TypeMismatch("%s is not a numeric kind", a.Type)
	}
	if !a.Present() || !b.Present() {
		return 0, queryerr.TypeMismatch("cannot compare absent %s values", a.Type)
	}

	switch pa := a.Payload.(type) {
	case Short:
		return cmp.Compare(pa, b.Payload.(Short)), nil
	case Long:
		return cmp.Compare(pa, b.Payload.(Long)), nil
	case LongLong:
		return cmp.Compare(pa, b.Payload.(LongLong)), nil
	case Float:
		return cmp.Compare(pa, b.Payload.(Float)), nil
	case Double:
		return cmp.Compare(pa, b.Payload.(Double)), nil
	default:
		return 0, queryerr.TypeMismatch("%s payload %T is not numeric", a.Type, a.Payload)
	}
}

// Max returns the larger of a and b; a wins ties.
func Max(a, b Value) (Value, error) {
	c, err := Compare(a, b)
	if err != nil {
		return Value{}, err
	}
	if c >= 0 {
		return a, nil
	}
	return b, nil
}
