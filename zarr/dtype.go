package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dtype is a simple zarr data type, written as a NumPy array protocol type
// string (typestr). The format consists of 3 parts:
//   - One character describing the byteorder of the data:
//     "<": little-endian; ">": big-endian; "|": not-relevant
//   - One character code giving the basic type of the array:
//     "b" boolean, "i" integer, "u" unsigned integer, "f" floating point,
//     "c" complex, "m" timedelta, "M" datetime, "S" string, "U" unicode,
//     "V" other
//   - An integer specifying the number of bytes the type uses.
//
// Only boolean, integer, unsigned and floating point types can be read into
// grids.
type Dtype struct {
	ByteOrder ByteOrder
	BasicType BasicType
	ByteSize  int
	Units     string
}

var (
	_ json.Unmarshaler = (*Dtype)(nil)
	_ json.Marshaler   = (*Dtype)(nil)
)

// Float64 is the dtype grids are written with by default
var Float64 = Dtype{ByteOrder: BOLittleEndian, BasicType: BTFloatingPoint, ByteSize: 8}

func ParseDtype(s string) (dt Dtype, err error) {
	// zarr-python has written HTML-escaped byte order marks
	s = strings.Replace(s, "&lt;", "<", 1)
	s = strings.Replace(s, "&gt;", ">", 1)

	if len(s) < 3 {
		return dt, fmt.Errorf("invalid Dtype string. %q is too short", s)
	}

	if dt.ByteOrder, err = ParseByteOrder(rune(s[0])); err != nil {
		return dt, err
	}
	if dt.BasicType, err = ParseBasicType(rune(s[1])); err != nil {
		return dt, err
	}

	sizeStr := s[2:]
	if i := strings.IndexByte(sizeStr, '['); i >= 0 {
		sizeStr, dt.Units = sizeStr[:i], sizeStr[i:]
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return dt, fmt.Errorf("invalid Dtype size in %q: %w", s, err)
	}
	dt.ByteSize = size

	return dt, nil
}

func (dt Dtype) String() string {
	return fmt.Sprintf("%s%s%d%s", string(dt.ByteOrder), string(dt.BasicType), dt.ByteSize, dt.Units)
}

func (dt Dtype) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

func (dt *Dtype) UnmarshalJSON(d []byte) error {
	var s string
	if err := json.Unmarshal(d, &s); err != nil {
		return fmt.Errorf("structured dtypes are not supported: %s", d)
	}
	t, err := ParseDtype(s)
	if err != nil {
		return err
	}

	*dt = t
	return nil
}

// numeric checks dt can be converted to and from float64
func (dt Dtype) numeric() error {
	ok := false
	switch dt.BasicType {
	case BTBoolean:
		ok = dt.ByteSize == 1
	case BTInteger, BTUnsigned:
		ok = dt.ByteSize == 1 || dt.ByteSize == 2 || dt.ByteSize == 4 || dt.ByteSize == 8
	case BTFloatingPoint:
		ok = dt.ByteSize == 4 || dt.ByteSize == 8
	}
	if !ok {
		return fmt.Errorf("unsupported dtype %s (%s)", dt, dt.BasicType.Human())
	}
	return nil
}

func (dt Dtype) order() binary.ByteOrder {
	if dt.ByteOrder == BOBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// decode converts raw chunk bytes to float64 values
func (dt Dtype) decode(b []byte) ([]float64, error) {
	if err := dt.numeric(); err != nil {
		return nil, err
	}
	sz := dt.ByteSize
	if len(b)%sz != 0 {
		return nil, fmt.Errorf("chunk of %d bytes is not a multiple of %s", len(b), dt)
	}

	bo := dt.order()
	out := make([]float64, len(b)/sz)
	for i := range out {
		p := b[i*sz : (i+1)*sz]
		switch dt.BasicType {
		case BTBoolean:
			if p[0] != 0 {
				out[i] = 1
			}
		case BTInteger:
			switch sz {
			case 1:
				out[i] = float64(int8(p[0]))
			case 2:
				out[i] = float64(int16(bo.Uint16(p)))
			case 4:
				out[i] = float64(int32(bo.Uint32(p)))
			case 8:
				out[i] = float64(int64(bo.Uint64(p)))
			}
		case BTUnsigned:
			switch sz {
			case 1:
				out[i] = float64(p[0])
			case 2:
				out[i] = float64(bo.Uint16(p))
			case 4:
				out[i] = float64(bo.Uint32(p))
			case 8:
				out[i] = float64(bo.Uint64(p))
			}
		case BTFloatingPoint:
			if sz == 4 {
				out[i] = float64(math.Float32frombits(bo.Uint32(p)))
			} else {
				out[i] = math.Float64frombits(bo.Uint64(p))
			}
		}
	}
	return out, nil
}

// encode converts float64 values to raw chunk bytes. Integer types cannot
// hold NaN or infinities.
func (dt Dtype) encode(vals []float64) ([]byte, error) {
	if err := dt.numeric(); err != nil {
		return nil, err
	}
	sz := dt.ByteSize
	bo := dt.order()
	b := make([]byte, len(vals)*sz)
	for i, v := range vals {
		p := b[i*sz : (i+1)*sz]
		if dt.BasicType != BTFloatingPoint && (math.IsNaN(v) || math.IsInf(v, 0)) {
			return nil, fmt.Errorf("cannot encode %v as %s", v, dt)
		}
		switch dt.BasicType {
		case BTBoolean:
			if v != 0 {
				p[0] = 1
			}
		case BTInteger, BTUnsigned:
			r := math.Round(v)
			lo, hi := dt.intRange()
			if r < lo || r >= hi {
				return nil, fmt.Errorf("cannot encode %v as %s: out of range", v, dt)
			}
			x := uint64(int64(r))
			if dt.BasicType == BTUnsigned {
				x = uint64(r)
			}
			switch sz {
			case 1:
				p[0] = byte(x)
			case 2:
				bo.PutUint16(p, uint16(x))
			case 4:
				bo.PutUint32(p, uint32(x))
			case 8:
				bo.PutUint64(p, uint64(x))
			}
		case BTFloatingPoint:
			if sz == 4 {
				bo.PutUint32(p, math.Float32bits(float32(v)))
			} else {
				bo.PutUint64(p, math.Float64bits(v))
			}
		}
	}
	return b, nil
}

// intRange is the span of values an integer dtype holds, hi exclusive
func (dt Dtype) intRange() (lo, hi float64) {
	bits := 8 * dt.ByteSize
	if dt.BasicType == BTUnsigned {
		return 0, math.Ldexp(1, bits)
	}
	return -math.Ldexp(1, bits-1), math.Ldexp(1, bits-1)
}

type ByteOrder rune

func ParseByteOrder(r rune) (ByteOrder, error) {
	o := ByteOrder(r)
	if _, ok := byteOrders[o]; !ok {
		return o, fmt.Errorf("unsupported byte order format: %q", r)
	}
	return o, nil
}

const (
	BONotRelevant  ByteOrder = '|'
	BOLittleEndian ByteOrder = '<'
	BOBigEndian    ByteOrder = '>'
)

var byteOrders = map[ByteOrder]struct{}{
	BONotRelevant:  {},
	BOLittleEndian: {},
	BOBigEndian:    {},
}

type BasicType rune

func ParseBasicType(r rune) (BasicType, error) {
	t := BasicType(r)
	if _, ok := supportedBasicTypes[t]; !ok {
		return t, fmt.Errorf("unsupported basic type: %q", r)
	}
	return t, nil
}

func (bt BasicType) Human() string {
	return supportedBasicTypes[bt]
}

const (
	BTBoolean       BasicType = 'b'
	BTInteger       BasicType = 'i'
	BTUnsigned      BasicType = 'u'
	BTFloatingPoint BasicType = 'f'
	BTComplex       BasicType = 'c'
	BTTimedelta     BasicType = 'm'
	BTDatetime      BasicType = 'M'
	BTString        BasicType = 'S'
	BTUnicode       BasicType = 'U'
	BTOther         BasicType = 'V'
)

var supportedBasicTypes = map[BasicType]string{
	BTBoolean:       "bool",
	BTInteger:       "int",
	BTUnsigned:      "uint",
	BTFloatingPoint: "float",
	BTComplex:       "complex",
	BTTimedelta:     "timeDelta",
	BTDatetime:      "dateTime",
	BTString:        "string",
	BTUnicode:       "unicode",
	BTOther:         "other",
}
