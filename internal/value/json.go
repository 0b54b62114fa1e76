package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalJSON encodes v as {"type":"DT_LONG","value":...}.
//
// The encoding is deterministic:
//   - strings are NFC normalized and never HTML-escaped
//   - absent values encode "value" as null
//   - byte strings encode as their hex text form
//   - complex numbers encode as [re, im]
//   - external references and blobs encode as objects with sorted keys
//   - non-finite floats encode as their text form ("NaN", "+Inf")
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	writeString(&buf, v.Type.String())
	buf.WriteString(`,"value":`)
	if !v.Present() {
		buf.WriteString("null")
	} else if err := writePayload(&buf, v.Payload); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalCanonicalString encodes s as a JSON string with NFC normalization
// and without HTML escaping.
func MarshalCanonicalString(s string) []byte {
	var buf bytes.Buffer
	writeString(&buf, s)
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // <, >, & stay literal
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

func writeFloat(buf *bytes.Buffer, f float64, bits int) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		writeString(buf, strconv.FormatFloat(f, 'g', -1, bits))
		return
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, bits))
}

func writeArray[S ~[]E, E any](buf *bytes.Buffer, s S, write func(E)) {
	buf.WriteByte('[')
	for i, e := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		write(e)
	}
	buf.WriteByte(']')
}

func writeInt(buf *bytes.Buffer, n int64) {
	buf.WriteString(strconv.FormatInt(n, 10))
}

func writeComplex(buf *bytes.Buffer, re, im float64, bits int) {
	buf.WriteByte('[')
	writeFloat(buf, re, bits)
	buf.WriteByte(',')
	writeFloat(buf, im, bits)
	buf.WriteByte(']')
}

func writeExtRef(buf *bytes.Buffer, r ExtRef) {
	buf.WriteString(`{"description":`)
	writeString(buf, r.Description)
	buf.WriteString(`,"location":`)
	writeString(buf, r.Location)
	buf.WriteString(`,"mime_type":`)
	writeString(buf, r.MimeType)
	buf.WriteByte('}')
}

func writePayload(buf *bytes.Buffer, p Payload) error {
	switch val := p.(type) {
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case Byte:
		writeInt(buf, int64(val))
	case Short:
		writeInt(buf, int64(val))
	case Long:
		writeInt(buf, int64(val))
	case LongLong:
		writeInt(buf, int64(val))
	case Float:
		writeFloat(buf, float64(val), 32)
	case Double:
		writeFloat(buf, float64(val), 64)
	case Str:
		writeString(buf, string(val))
	case Date:
		writeString(buf, string(val))
	case Enum:
		writeInt(buf, int64(val))
	case ByteStr:
		writeString(buf, formatHex(val))
	case Complex:
		writeComplex(buf, float64(val.Re), float64(val.Im), 32)
	case DComplex:
		writeComplex(buf, val.Re, val.Im, 64)
	case ExtRef:
		writeExtRef(buf, val)
	case Blob:
		buf.WriteString(`{"data":`)
		writeString(buf, formatHex(val.Data))
		buf.WriteString(`,"header":`)
		writeString(buf, val.Header)
		buf.WriteByte('}')
	case BoolSeq:
		writeArray(buf, val, func(b bool) { buf.WriteString(strconv.FormatBool(b)) })
	case ByteSeq:
		writeArray(buf, val, func(b uint8) { writeInt(buf, int64(b)) })
	case ShortSeq:
		writeArray(buf, val, func(n int16) { writeInt(buf, int64(n)) })
	case LongSeq:
		writeArray(buf, val, func(n int32) { writeInt(buf, int64(n)) })
	case LongLongSeq:
		writeArray(buf, val, func(n int64) { writeInt(buf, n) })
	case FloatSeq:
		writeArray(buf, val, func(f float32) { writeFloat(buf, float64(f), 32) })
	case DoubleSeq:
		writeArray(buf, val, func(f float64) { writeFloat(buf, f, 64) })
	case StrSeq:
		writeArray(buf, val, func(s string) { writeString(buf, s) })
	case DateSeq:
		writeArray(buf, val, func(s string) { writeString(buf, s) })
	case EnumSeq:
		writeArray(buf, val, func(n int32) { writeInt(buf, int64(n)) })
	case ByteStrSeq:
		writeArray(buf, val, func(b []byte) { writeString(buf, formatHex(b)) })
	case ComplexSeq:
		writeArray(buf, val, func(c Complex) { writeComplex(buf, float64(c.Re), float64(c.Im), 32) })
	case DComplexSeq:
		writeArray(buf, val, func(c DComplex) { writeComplex(buf, c.Re, c.Im, 64) })
	case ExtRefSeq:
		writeArray(buf, val, func(r ExtRef) { writeExtRef(buf, r) })
	default:
		return fmt.Errorf("unknown payload type: %T", p)
	}
	return nil
}
