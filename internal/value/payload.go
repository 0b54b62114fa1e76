package value

// Payload is a sealed interface over the datatype kinds.
// Only the types declared in this file implement it.
type Payload interface {
	// DataType returns the kind this payload represents.
	DataType() DataType
	payload() // Sealed
}

// Scalar payloads.
type (
	Bool     bool
	Byte     uint8
	Short    int16
	Long     int32
	LongLong int64
	Float    float32
	Double   float64
	Str      string
	Date     string // ODS date string, e.g. "20240131120000"
	Enum     int32
	ByteStr  []byte
)

// Complex is a pair of float32 components.
type Complex struct {
	Re, Im float32
}

// DComplex is a pair of float64 components.
type DComplex struct {
	Re, Im float64
}

// ExtRef references content stored outside the instance graph.
type ExtRef struct {
	Description string
	MimeType    string
	Location    string
}

// Blob is an opaque binary with a textual header.
type Blob struct {
	Header string
	Data   []byte
}

// Sequence payloads.
type (
	BoolSeq     []bool
	ByteSeq     []uint8
	ShortSeq    []int16
	LongSeq     []int32
	LongLongSeq []int64
	FloatSeq    []float32
	DoubleSeq   []float64
	StrSeq      []string
	DateSeq     []string
	EnumSeq     []int32
	ByteStrSeq  [][]byte
	ComplexSeq  []Complex
	DComplexSeq []DComplex
	ExtRefSeq   []ExtRef
)

func (Bool) payload()        {}
func (Byte) payload()        {}
func (Short) payload()       {}
func (Long) payload()        {}
func (LongLong) payload()    {}
func (Float) payload()       {}
func (Double) payload()      {}
func (Str) payload()         {}
func (Date) payload()        {}
func (Enum) payload()        {}
func (ByteStr) payload()     {}
func (Complex) payload()     {}
func (DComplex) payload()    {}
func (ExtRef) payload()      {}
func (Blob) payload()        {}
func (BoolSeq) payload()     {}
func (ByteSeq) payload()     {}
func (ShortSeq) payload()    {}
func (LongSeq) payload()     {}
func (LongLongSeq) payload() {}
func (FloatSeq) payload()    {}
func (DoubleSeq) payload()   {}
func (StrSeq) payload()      {}
func (DateSeq) payload()     {}
func (EnumSeq) payload()     {}
func (ByteStrSeq) payload()  {}
func (ComplexSeq) payload()  {}
func (DComplexSeq) payload() {}
func (ExtRefSeq) payload()   {}

func (Bool) DataType() DataType        { return DTBoolean }
func (Byte) DataType() DataType        { return DTByte }
func (Short) DataType() DataType       { return DTShort }
func (Long) DataType() DataType        { return DTLong }
func (LongLong) DataType() DataType    { return DTLongLong }
func (Float) DataType() DataType       { return DTFloat }
func (Double) DataType() DataType      { return DTDouble }
func (Str) DataType() DataType         { return DTString }
func (Date) DataType() DataType        { return DTDate }
func (Enum) DataType() DataType        { return DTEnum }
func (ByteStr) DataType() DataType     { return DTByteStr }
func (Complex) DataType() DataType     { return DTComplex }
func (DComplex) DataType() DataType    { return DTDComplex }
func (ExtRef) DataType() DataType      { return DTExtRef }
func (Blob) DataType() DataType        { return DTBlob }
func (BoolSeq) DataType() DataType     { return DSBoolean }
func (ByteSeq) DataType() DataType     { return DSByte }
func (ShortSeq) DataType() DataType    { return DSShort }
func (LongSeq) DataType() DataType     { return DSLong }
func (LongLongSeq) DataType() DataType { return DSLongLong }
func (FloatSeq) DataType() DataType    { return DSFloat }
func (DoubleSeq) DataType() DataType   { return DSDouble }
func (StrSeq) DataType() DataType      { return DSString }
func (DateSeq) DataType() DataType     { return DSDate }
func (EnumSeq) DataType() DataType     { return DSEnum }
func (ByteStrSeq) DataType() DataType  { return DSByteStr }
func (ComplexSeq) DataType() DataType  { return DSComplex }
func (DComplexSeq) DataType() DataType { return DSDComplex }
func (ExtRefSeq) DataType() DataType   { return DSExtRef }

// Zero returns the zero payload of dt. Sequence kinds yield an empty,
// non-nil sequence.
func Zero(dt DataType) (Payload, error) {
	switch dt {
	case DTBoolean:
		return Bool(false), nil
	case DTByte:
		return Byte(0), nil
	case DTShort:
		return Short(0), nil
	case DTLong:
		return Long(0), nil
	case DTLongLong:
		return LongLong(0), nil
	case DTFloat:
		return Float(0), nil
	case DTDouble:
		return Double(0), nil
	case DTString:
		return Str(""), nil
	case DTDate:
		return Date(""), nil
	case DTEnum:
		return Enum(0), nil
	case DTByteStr:
		return ByteStr{}, nil
	case DTComplex:
		return Complex{}, nil
	case DTDComplex:
		return DComplex{}, nil
	case DTExtRef:
		return ExtRef{}, nil
	case DTBlob:
		return Blob{Data: []byte{}}, nil
	case DSBoolean:
		return BoolSeq{}, nil
	case DSByte:
		return ByteSeq{}, nil
	case DSShort:
		return ShortSeq{}, nil
	case DSLong:
		return LongSeq{}, nil
	case DSLongLong:
		return LongLongSeq{}, nil
	case DSFloat:
		return FloatSeq{}, nil
	case DSDouble:
		return DoubleSeq{}, nil
	case DSString:
		return StrSeq{}, nil
	case DSDate:
		return DateSeq{}, nil
	case DSEnum:
		return EnumSeq{}, nil
	case DSByteStr:
		return ByteStrSeq{}, nil
	case DSComplex:
		return ComplexSeq{}, nil
	case DSDComplex:
		return DComplexSeq{}, nil
	case DSExtRef:
		return ExtRefSeq{}, nil
	default:
		return nil, typeMismatch(dt)
	}
}

// seqLen returns the element count of a sequence payload, or -1 for scalars.
func seqLen(p Payload) int {
	switch s := p.(type) {
	case BoolSeq:
		return len(s)
	case ByteSeq:
		return len(s)
	case ShortSeq:
		return len(s)
	case LongSeq:
		return len(s)
	case LongLongSeq:
		return len(s)
	case FloatSeq:
		return len(s)
	case DoubleSeq:
		return len(s)
	case StrSeq:
		return len(s)
	case DateSeq:
		return len(s)
	case EnumSeq:
		return len(s)
	case ByteStrSeq:
		return len(s)
	case ComplexSeq:
		return len(s)
	case DComplexSeq:
		return len(s)
	case ExtRefSeq:
		return len(s)
	default:
		return -1
	}
}
