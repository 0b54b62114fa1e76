package value

import (
	"bytes"
	"slices"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
)

// Value is a typed value with explicit presence.
//
// Type is always set. Payload is nil when the value is absent ("no value");
// code must never infer absence from payload contents.
type Value struct {
	Type    DataType
	Payload Payload
}

// Of wraps a payload as a present Value of the payload's kind.
func Of(p Payload) Value {
	return Value{Type: p.DataType(), Payload: p}
}

// New creates a present Value of dt, checking that p has that kind.
func New(dt DataType, p Payload) (Value, error) {
	if p == nil {
		return Value{}, queryerr.BadParameter("nil payload for %s", dt)
	}
	if p.DataType() != dt {
		return Value{}, queryerr.TypeMismatch("payload of kind %s does not match %s", p.DataType(), dt)
	}
	return Value{Type: dt, Payload: p}, nil
}

// Absent returns "no value" of dt.
func Absent(dt DataType) Value {
	return Value{Type: dt}
}

// Present reports whether v holds a value.
func (v Value) Present() bool {
	return v.Payload != nil
}

// Len returns the element count of a present sequence value, 1 for a present
// scalar and 0 for an absent value.
func (v Value) Len() int {
	if !v.Present() {
		return 0
	}
	if n := seqLen(v.Payload); n >= 0 {
		return n
	}
	return 1
}

// NewLongLong creates a present DT_LONGLONG value.
func NewLongLong(n int64) Value { return Of(LongLong(n)) }

// NewLong creates a present DT_LONG value.
func NewLong(n int32) Value { return Of(Long(n)) }

// NewShort creates a present DT_SHORT value.
func NewShort(n int16) Value { return Of(Short(n)) }

// NewDouble creates a present DT_DOUBLE value.
func NewDouble(f float64) Value { return Of(Double(f)) }

// NewFloat creates a present DT_FLOAT value.
func NewFloat(f float32) Value { return Of(Float(f)) }

// NewString creates a present DT_STRING value.
func NewString(s string) Value { return Of(Str(s)) }

// NewEnum creates a present DT_ENUM value.
func NewEnum(code int32) Value { return Of(Enum(code)) }

// NewLongLongSeq creates a present DS_LONGLONG value.
func NewLongLongSeq(ns ...int64) Value {
	if ns == nil {
		ns = []int64{}
	}
	return Of(LongLongSeq(ns))
}

// NewStringSeq creates a present DS_STRING value.
func NewStringSeq(ss ...string) Value {
	if ss == nil {
		ss = []string{}
	}
	return Of(StrSeq(ss))
}

// NewEnumSeq creates a present DS_ENUM value.
func NewEnumSeq(codes ...int32) Value {
	if codes == nil {
		codes = []int32{}
	}
	return Of(EnumSeq(codes))
}

// Equal reports whether a and b have the same type, presence and payload.
// Nil and empty sequences compare equal.
func Equal(a, b Value) bool {
	if a.Type != b.Type || a.Present() != b.Present() {
		return false
	}
	if !a.Present() {
		return true
	}
	return payloadEqual(a.Payload, b.Payload)
}

func payloadEqual(a, b Payload) bool {
	switch pa := a.(type) {
	case ByteStr:
		pb, ok := b.(ByteStr)
		return ok && bytes.Equal(pa, pb)
	case Blob:
		pb, ok := b.(Blob)
		return ok && pa.Header == pb.Header && bytes.Equal(pa.Data, pb.Data)
	case BoolSeq:
		pb, ok := b.(BoolSeq)
		return ok && slices.Equal(pa, pb)
	case ByteSeq:
		pb, ok := b.(ByteSeq)
		return ok && slices.Equal(pa, pb)
	case ShortSeq:
		pb, ok := b.(ShortSeq)
		return ok && slices.Equal(pa, pb)
	case LongSeq:
		pb, ok := b.(LongSeq)
		return ok && slices.Equal(pa, pb)
	case LongLongSeq:
		pb, ok := b.(LongLongSeq)
		return ok && slices.Equal(pa, pb)
	case FloatSeq:
		pb, ok := b.(FloatSeq)
		return ok && slices.Equal(pa, pb)
	case DoubleSeq:
		pb, ok := b.(DoubleSeq)
		return ok && slices.Equal(pa, pb)
	case StrSeq:
		pb, ok := b.(StrSeq)
		return ok && slices.Equal(pa, pb)
	case DateSeq:
		pb, ok := b.(DateSeq)
		return ok && slices.Equal(pa, pb)
	case EnumSeq:
		pb, ok := b.(EnumSeq)
		return ok && slices.Equal(pa, pb)
	case ByteStrSeq:
		pb, ok := b.(ByteStrSeq)
		return ok && slices.EqualFunc(pa, pb, func(x, y []byte) bool { return bytes.Equal(x, y) })
	case ComplexSeq:
		pb, ok := b.(ComplexSeq)
		return ok && slices.Equal(pa, pb)
	case DComplexSeq:
		pb, ok := b.(DComplexSeq)
		return ok && slices.Equal(pa, pb)
	case ExtRefSeq:
		pb, ok := b.(ExtRefSeq)
		return ok && slices.Equal(pa, pb)
	default:
		// Remaining scalar kinds are comparable.
		return a == b
	}
}

// Int64s returns the elements of an integral value (scalar or sequence) as
// int64. Absent values yield nil.
func Int64s(v Value) ([]int64, error) {
	if !v.Present() {
		return nil, nil
	}
	switch p := v.Payload.(type) {
	case Byte:
		return []int64{int64(p)}, nil
	case Short:
		return []int64{int64(p)}, nil
	case Long:
		return []int64{int64(p)}, nil
	case LongLong:
		return []int64{int64(p)}, nil
	case Enum:
		return []int64{int64(p)}, nil
	case ByteSeq:
		return widen(p), nil
	case ShortSeq:
		return widen(p), nil
	case LongSeq:
		return widen(p), nil
	case LongLongSeq:
		return slices.Clone([]int64(p)), nil
	case EnumSeq:
		return widen(p), nil
	default:
		return nil, queryerr.TypeMismatch("%s is not an integral kind", v.Type)
	}
}

type integer interface {
	~uint8 | ~int16 | ~int32 | ~int64
}

func widen[S ~[]E, E integer](s S) []int64 {
	out := make([]int64, len(s))
	for i, n := range s {
		out[i] = int64(n)
	}
	return out
}

// Strings returns the elements of a string-like sequence, or the text form
// of any other present value as a single element.
func Strings(v Value) []string {
	if !v.Present() {
		return nil
	}
	switch p := v.Payload.(type) {
	case StrSeq:
		return slices.Clone([]string(p))
	case DateSeq:
		return slices.Clone([]string(p))
	default:
		return []string{v.String()}
	}
}

func typeMismatch(dt DataType) error {
	return queryerr.TypeMismatch("unsupported datatype %s", dt)
}
