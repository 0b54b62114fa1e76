package value

import (
	"fmt"

	"github.com/peak-solution/openatfx-sub003/internal/queryerr"
)

// DataType identifies the kind of a Value. The numeric codes follow the
// ASAM ODS DataType enumeration.
type DataType int

const (
	DTString   DataType = 1
	DTShort    DataType = 2
	DTFloat    DataType = 3
	DTBoolean  DataType = 4
	DTByte     DataType = 5
	DTLong     DataType = 6
	DTDouble   DataType = 7
	DTLongLong DataType = 8
	DTDate     DataType = 10
	DTByteStr  DataType = 11
	DTBlob     DataType = 12
	DSString   DataType = 13
	DSShort    DataType = 14
	DSFloat    DataType = 15
	DSBoolean  DataType = 16
	DSByte     DataType = 17
	DSLong     DataType = 18
	DSDouble   DataType = 19
	DSLongLong DataType = 20
	DSComplex  DataType = 21
	DSDComplex DataType = 22
	DSDate     DataType = 24
	DSByteStr  DataType = 25
	DTComplex  DataType = 26
	DTDComplex DataType = 27
	DSExtRef   DataType = 28
	DTExtRef   DataType = 29
	DTEnum     DataType = 30
	DSEnum     DataType = 31
)

// dataTypeInfo is one row of the identity table.
type dataTypeInfo struct {
	name string
	code DataType
	elem DataType // scalar kind; equals code for scalars
}

var dataTypeTable = []dataTypeInfo{
	{"DT_STRING", DTString, DTString},
	{"DT_SHORT", DTShort, DTShort},
	{"DT_FLOAT", DTFloat, DTFloat},
	{"DT_BOOLEAN", DTBoolean, DTBoolean},
	{"DT_BYTE", DTByte, DTByte},
	{"DT_LONG", DTLong, DTLong},
	{"DT_DOUBLE", DTDouble, DTDouble},
	{"DT_LONGLONG", DTLongLong, DTLongLong},
	{"DT_DATE", DTDate, DTDate},
	{"DT_BYTESTR", DTByteStr, DTByteStr},
	{"DT_BLOB", DTBlob, DTBlob},
	{"DS_STRING", DSString, DTString},
	{"DS_SHORT", DSShort, DTShort},
	{"DS_FLOAT", DSFloat, DTFloat},
	{"DS_BOOLEAN", DSBoolean, DTBoolean},
	{"DS_BYTE", DSByte, DTByte},
	{"DS_LONG", DSLong, DTLong},
	{"DS_DOUBLE", DSDouble, DTDouble},
	{"DS_LONGLONG", DSLongLong, DTLongLong},
	{"DS_COMPLEX", DSComplex, DTComplex},
	{"DS_DCOMPLEX", DSDComplex, DTDComplex},
	{"DS_DATE", DSDate, DTDate},
	{"DS_BYTESTR", DSByteStr, DTByteStr},
	{"DT_COMPLEX", DTComplex, DTComplex},
	{"DT_DCOMPLEX", DTDComplex, DTDComplex},
	{"DS_EXTERNALREFERENCE", DSExtRef, DTExtRef},
	{"DT_EXTERNALREFERENCE", DTExtRef, DTExtRef},
	{"DT_ENUM", DTEnum, DTEnum},
	{"DS_ENUM", DSEnum, DTEnum},
}

// Read-only after init.
var (
	dataTypesByName = make(map[string]dataTypeInfo, len(dataTypeTable))
	dataTypesByCode = make(map[DataType]dataTypeInfo, len(dataTypeTable))
	sequenceOf      = make(map[DataType]DataType, len(dataTypeTable)/2)
)

func init() {
	for _, info := range dataTypeTable {
		if _, dup := dataTypesByName[info.name]; dup {
			panic("value: duplicate datatype name " + info.name)
		}
		if _, dup := dataTypesByCode[info.code]; dup {
			panic(fmt.Sprintf("value: duplicate datatype code %d", info.code))
		}
		dataTypesByName[info.name] = info
		dataTypesByCode[info.code] = info
		if info.code != info.elem {
			sequenceOf[info.elem] = info.code
		}
	}
}

// AllDataTypes returns every known DataType in table order.
func AllDataTypes() []DataType {
	out := make([]DataType, len(dataTypeTable))
	for i, info := range dataTypeTable {
		out[i] = info.code
	}
	return out
}

// ParseDataType looks up a DataType by its symbolic name (e.g. "DT_LONGLONG").
func ParseDataType(name string) (DataType, error) {
	info, ok := dataTypesByName[name]
	if !ok {
		return 0, queryerr.TypeMismatch("unknown datatype name %q", name)
	}
	return info.code, nil
}

// DataTypeFromCode looks up a DataType by its numeric code.
func DataTypeFromCode(code int) (DataType, error) {
	info, ok := dataTypesByCode[DataType(code)]
	if !ok {
		return 0, queryerr.TypeMismatch("unknown datatype code %d", code)
	}
	return info.code, nil
}

// Valid reports whether dt is in the identity table.
func (dt DataType) Valid() bool {
	_, ok := dataTypesByCode[dt]
	return ok
}

// String returns the symbolic name.
func (dt DataType) String() string {
	if info, ok := dataTypesByCode[dt]; ok {
		return info.name
	}
	return fmt.Sprintf("DataType(%d)", int(dt))
}

// MarshalText encodes dt as its symbolic name.
func (dt DataType) MarshalText() ([]byte, error) {
	if !dt.Valid() {
		return nil, typeMismatch(dt)
	}
	return []byte(dt.String()), nil
}

// UnmarshalText decodes a symbolic name.
func (dt *DataType) UnmarshalText(text []byte) error {
	parsed, err := ParseDataType(string(text))
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// IsSequence reports whether dt is a DS_* kind.
func (dt DataType) IsSequence() bool {
	info, ok := dataTypesByCode[dt]
	return ok && info.code != info.elem
}

// Elem returns the scalar kind of a sequence, or dt itself for scalars.
func (dt DataType) Elem() DataType {
	if info, ok := dataTypesByCode[dt]; ok {
		return info.elem
	}
	return dt
}

// Sequence returns the DS_* kind whose elements are dt. DT_BLOB has none.
func (dt DataType) Sequence() (DataType, bool) {
	seq, ok := sequenceOf[dt]
	return seq, ok
}

// IsNumeric reports whether dt supports Compare and Max.
func (dt DataType) IsNumeric() bool {
	switch dt {
	case DTShort, DTLong, DTLongLong, DTFloat, DTDouble:
		return true
	default:
		return false
	}
}

// IsIntegral reports whether values of dt (or its elements) convert
// losslessly to int64.
func (dt DataType) IsIntegral() bool {
	switch dt.Elem() {
	case DTByte, DTShort, DTLong, DTLongLong, DTEnum:
		return true
	default:
		return false
	}
}
