package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
)

// ToString returns the text form of v. Absent values and empty sequences
// yield "".
//
// Scalars use their direct textual form, except:
//   - byte: two-digit uppercase hex
//   - byte-string: space-joined hex bytes
//   - complex: "re im"
//   - external reference: "description[mime,location]"
//   - blob: "header[hex bytes]"
//
// Sequences join their element forms with ",".
func ToString(v Value) string {
	if !v.Present() {
		return ""
	}
	return formatPayload(v.Payload)
}

// String implements fmt.Stringer via ToString.
func (v Value) String() string {
	return ToString(v)
}

func formatPayload(p Payload) string {
	switch val := p.(type) {
	case Bool:
		return strconv.FormatBool(bool(val))
	case Byte:
		return formatByte(uint8(val))
	case Short:
		return strconv.FormatInt(int64(val), 10)
	case Long:
		return strconv.FormatInt(int64(val), 10)
	case LongLong:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return formatFloat32(float32(val))
	case Double:
		return formatFloat64(float64(val))
	case Str:
		return string(val)
	case Date:
		return string(val)
	case Enum:
		return strconv.FormatInt(int64(val), 10)
	case ByteStr:
		return formatHex(val)
	case Complex:
		return formatComplex(val)
	case DComplex:
		return formatDComplex(val)
	case ExtRef:
		return formatExtRef(val)
	case Blob:
		return val.Header + "[" + formatHex(val.Data) + "]"
	case BoolSeq:
		return joinSeq(val, strconv.FormatBool)
	case ByteSeq:
		return joinSeq(val, formatByte)
	case ShortSeq:
		return joinSeq(val, func(n int16) string { return strconv.FormatInt(int64(n), 10) })
	case LongSeq:
		return joinSeq(val, func(n int32) string { return strconv.FormatInt(int64(n), 10) })
	case LongLongSeq:
		return joinSeq(val, func(n int64) string { return strconv.FormatInt(n, 10) })
	case FloatSeq:
		return joinSeq(val, formatFloat32)
	case DoubleSeq:
		return joinSeq(val, formatFloat64)
	case StrSeq:
		return strings.Join(val, ",")
	case DateSeq:
		return strings.Join(val, ",")
	case EnumSeq:
		return joinSeq(val, func(n int32) string { return strconv.FormatInt(int64(n), 10) })
	case ByteStrSeq:
		return joinSeq(val, formatHex)
	case ComplexSeq:
		return joinSeq(val, formatComplex)
	case DComplexSeq:
		return joinSeq(val, formatDComplex)
	case ExtRefSeq:
		return joinSeq(val, formatExtRef)
	default:
		panic(fmt.Sprintf("value: unhandled payload %T", p))
	}
}

func joinSeq[S ~[]E, E any](s S, format func(E) string) string {
	parts := make([]string, len(s))
	for i, e := range s {
		parts[i] = format(e)
	}
	return strings.Join(parts, ",")
}

func formatByte(b uint8) string {
	return fmt.Sprintf("%02X", b)
}

func formatHex(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = formatByte(c)
	}
	return strings.Join(parts, " ")
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}

func formatFloat64(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatComplex(c Complex) string {
	return formatFloat32(c.Re) + " " + formatFloat32(c.Im)
}

func formatDComplex(c DComplex) string {
	return formatFloat64(c.Re) + " " + formatFloat64(c.Im)
}

func formatExtRef(r ExtRef) string {
	return r.Description + "[" + r.MimeType + "," + r.Location + "]"
}

// FromString parses text as a value of dt.
//
// Empty text yields "no value" for scalar kinds, but a present empty
// sequence for sequence kinds.
func FromString(dt DataType, text string) (Value, error) {
	if !dt.Valid() {
		return Value{}, typeMismatch(dt)
	}
	if text == "" {
		if dt.IsSequence() {
			p, err := Zero(dt)
			if err != nil {
				return Value{}, err
			}
			return Value{Type: dt, Payload: p}, nil
		}
		return Absent(dt), nil
	}

	p, err := parsePayload(dt, text)
	if err != nil {
		return Value{}, err
	}
	return Value{Type: dt, Payload: p}, nil
}

// MustFromString is FromString for literals in tests and fixtures.
func MustFromString(dt DataType, text string) Value {
	v, err := FromString(dt, text)
	if err != nil {
		panic(err)
	}
	return v
}

func parsePayload(dt DataType, text string) (Payload, error) {
	switch dt {
	case DTBoolean:
		return wrap(parseBool(text), func(b bool) Payload { return Bool(b) })
	case DTByte:
		return wrap(parseByte(text), func(b uint8) Payload { return Byte(b) })
	case DTShort:
		return wrap(parseInt[int16](text, 16), func(n int16) Payload { return Short(n) })
	case DTLong:
		return wrap(parseInt[int32](text, 32), func(n int32) Payload { return Long(n) })
	case DTLongLong:
		return wrap(parseInt[int64](text, 64), func(n int64) Payload { return LongLong(n) })
	case DTFloat:
		return wrap(parseFloat32(text), func(f float32) Payload { return Float(f) })
	case DTDouble:
		return wrap(parseFloat64(text), func(f float64) Payload { return Double(f) })
	case DTString:
		return Str(text), nil
	case DTDate:
		return Date(text), nil
	case DTEnum:
		return wrap(parseInt[int32](text, 32), func(n int32) Payload { return Enum(n) })
	case DTByteStr:
		return wrap(parseHex(text), func(b []byte) Payload { return ByteStr(b) })
	case DTComplex:
		return wrap(parseComplex(text), func(c Complex) Payload { return c })
	case DTDComplex:
		return wrap(parseDComplex(text), func(c DComplex) Payload { return c })
	case DTExtRef:
		return wrap(parseExtRef(text), func(r ExtRef) Payload { return r })
	case DTBlob:
		return wrap(parseBlob(text), func(b Blob) Payload { return b })
	case DSBoolean:
		return wrap(parseSeq(splitSeq(text), parseBool), func(s []bool) Payload { return BoolSeq(s) })
	case DSByte:
		return wrap(parseSeq(splitSeq(text), parseByte), func(s []uint8) Payload { return ByteSeq(s) })
	case DSShort:
		return wrap(parseSeq(splitSeq(text), bitsInt[int16](16)), func(s []int16) Payload { return ShortSeq(s) })
	case DSLong:
		return wrap(parseSeq(splitSeq(text), bitsInt[int32](32)), func(s []int32) Payload { return LongSeq(s) })
	case DSLongLong:
		return wrap(parseSeq(splitSeq(text), bitsInt[int64](64)), func(s []int64) Payload { return LongLongSeq(s) })
	case DSFloat:
		return wrap(parseSeq(splitSeq(text), parseFloat32), func(s []float32) Payload { return FloatSeq(s) })
	case DSDouble:
		return wrap(parseSeq(splitSeq(text), parseFloat64), func(s []float64) Payload { return DoubleSeq(s) })
	case DSString:
		return StrSeq(splitSeq(text)), nil
	case DSDate:
		return DateSeq(splitSeq(text)), nil
	case DSEnum:
		return wrap(parseSeq(splitSeq(text), bitsInt[int32](32)), func(s []int32) Payload { return EnumSeq(s) })
	case DSByteStr:
		return wrap(parseSeq(splitSeq(text), parseHex), func(s [][]byte) Payload { return ByteStrSeq(s) })
	case DSComplex:
		return wrap(parseSeq(splitSeq(text), parseComplex), func(s []Complex) Payload { return ComplexSeq(s) })
	case DSDComplex:
		return wrap(parseSeq(splitSeq(text), parseDComplex), func(s []DComplex) Payload { return DComplexSeq(s) })
	case DSExtRef:
		return wrap(parseSeq(splitExtRefs(text), parseExtRef), func(s []ExtRef) Payload { return ExtRefSeq(s) })
	default:
		return nil, typeMismatch(dt)
	}
}

// wrap adapts a parse result into a Payload, tagging parse failures as
// TYPE_MISMATCH.
func wrap[T any](parse func() (T, error), box func(T) Payload) (Payload, error) {
	v, err := parse()
	if err != nil {
		return nil, queryerr.TypeMismatch("%v", err)
	}
	return box(v), nil
}

func splitSeq(text string) []string {
	return strings.Split(text, ",")
}

// splitExtRefs splits "a[m,l],b[m,l]" on the "]," boundaries, since the
// element form itself contains a comma.
func splitExtRefs(text string) []string {
	var parts []string
	for {
		idx := strings.Index(text, "],")
		if idx == -1 {
			return append(parts, text)
		}
		parts = append(parts, text[:idx+1])
		text = text[idx+2:]
	}
}

func parseSeq[T any](parts []string, parse func(string) func() (T, error)) func() ([]T, error) {
	return func() ([]T, error) {
		out := make([]T, len(parts))
		for i, part := range parts {
			v, err := parse(part)()
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
}

func parseBool(s string) func() (bool, error) {
	return func() (bool, error) {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return false, fmt.Errorf("invalid boolean %q", s)
		}
		return b, nil
	}
}

func parseByte(s string) func() (uint8, error) {
	return func() (uint8, error) {
		n, err := strconv.ParseUint(strings.TrimSpace(s), 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex byte %q", s)
		}
		return uint8(n), nil
	}
}

type signed interface {
	~int16 | ~int32 | ~int64
}

func parseInt[T signed](s string, bits int) func() (T, error) {
	return func() (T, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
		if err != nil {
			return 0, fmt.Errorf("invalid %d-bit integer %q", bits, s)
		}
		return T(n), nil
	}
}

func bitsInt[T signed](bits int) func(string) func() (T, error) {
	return func(s string) func() (T, error) {
		return parseInt[T](s, bits)
	}
}

func parseFloat32(s string) func() (float32, error) {
	return func() (float32, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
		if err != nil {
			return 0, fmt.Errorf("invalid float %q", s)
		}
		return float32(f), nil
	}
}

func parseFloat64(s string) func() (float64, error) {
	return func() (float64, error) {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid double %q", s)
		}
		return f, nil
	}
}

func parseHex(s string) func() ([]byte, error) {
	return func() ([]byte, error) {
		fields := strings.Fields(s)
		out := make([]byte, len(fields))
		for i, f := range fields {
			b, err := parseByte(f)()
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	}
}

func parseComplex(s string) func() (Complex, error) {
	return func() (Complex, error) {
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return Complex{}, fmt.Errorf("invalid complex %q: want \"re im\"", s)
		}
		re, err := parseFloat32(fields[0])()
		if err != nil {
			return Complex{}, err
		}
		im, err := parseFloat32(fields[1])()
		if err != nil {
			return Complex{}, err
		}
		return Complex{Re: re, Im: im}, nil
	}
}

func parseDComplex(s string) func() (DComplex, error) {
	return func() (DComplex, error) {
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return DComplex{}, fmt.Errorf("invalid double complex %q: want \"re im\"", s)
		}
		re, err := parseFloat64(fields[0])()
		if err != nil {
			return DComplex{}, err
		}
		im, err := parseFloat64(fields[1])()
		if err != nil {
			return DComplex{}, err
		}
		return DComplex{Re: re, Im: im}, nil
	}
}

// bracketed splits "head[body]" at the last '['.
func bracketed(s string) (head, body string, ok bool) {
	if !strings.HasSuffix(s, "]") {
		return "", "", false
	}
	idx := strings.LastIndex(s, "[")
	if idx == -1 {
		return "", "", false
	}
	return s[:idx], s[idx+1 : len(s)-1], true
}

func parseExtRef(s string) func() (ExtRef, error) {
	return func() (ExtRef, error) {
		desc, body, ok := bracketed(s)
		if !ok {
			return ExtRef{}, fmt.Errorf("invalid external reference %q: want \"description[mime,location]\"", s)
		}
		mime, location, ok := strings.Cut(body, ",")
		if !ok {
			return ExtRef{}, fmt.Errorf("invalid external reference %q: missing location", s)
		}
		return ExtRef{Description: desc, MimeType: mime, Location: location}, nil
	}
}

func parseBlob(s string) func() (Blob, error) {
	return func() (Blob, error) {
		header, body, ok := bracketed(s)
		if !ok {
			return Blob{}, fmt.Errorf("invalid blob %q: want \"header[hex bytes]\"", s)
		}
		data, err := parseHex(body)()
		if err != nil {
			return Blob{}, err
		}
		return Blob{Header: header, Data: data}, nil
	}
}
