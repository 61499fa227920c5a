package message

import (
	"encoding/binary"
	"strconv"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// Class is a datatype class.
type Class uint8

const (
	ClassFixedPoint Class = 0
	ClassFloatPoint Class = 1
	ClassTime       Class = 2
	ClassString     Class = 3
	ClassBitfield   Class = 4
	ClassOpaque     Class = 5
	ClassCompound   Class = 6
	ClassReference  Class = 7
	ClassEnum       Class = 8
	ClassVarLen     Class = 9
	ClassArray      Class = 10
)

var classNames = [...]string{
	"integer", "float", "time", "string", "bitfield", "opaque",
	"compound", "reference", "enum", "vlen", "array",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// StringPad is the padding convention of a fixed-length string.
type StringPad uint8

const (
	PadNullTerm StringPad = 0
	PadNullPad  StringPad = 1
	PadSpacePad StringPad = 2
)

// Datatype describes one element of a dataset.
type Datatype struct {
	Class     Class
	Size      uint32
	BigEndian bool
	Signed    bool
	Pad       StringPad
	UTF8      bool

	// VarLenString is set for variable-length strings, which are decoded
	// but not converted.
	VarLenString bool

	bits  uint32
	props []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsNumeric reports whether values convert to float64.
func (m *Datatype) IsNumeric() bool {
	return m.Class == ClassFixedPoint || m.Class == ClassFloatPoint
}

// IsString reports whether the elements are strings of either kind.
func (m *Datatype) IsString() bool {
	return m.Class == ClassString || m.VarLenString
}

// Order returns the byte order of numeric elements.
func (m *Datatype) Order() binary.ByteOrder {
	if m.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// String names the type the way numpy would, e.g. "<f4" or "|S16".
func (m *Datatype) String() string {
	order := "<"
	if m.BigEndian {
		order = ">"
	}
	switch m.Class {
	case ClassFixedPoint:
		kind := "u"
		if m.Signed {
			kind = "i"
		}
		return order + kind + strconv.Itoa(int(m.Size))
	case ClassFloatPoint:
		return order + "f" + strconv.Itoa(int(m.Size))
	case ClassString:
		return "|S" + strconv.Itoa(int(m.Size))
	}
	if m.VarLenString {
		return "str"
	}
	return m.Class.String()
}

func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, ErrTruncated
	}
	dt := &Datatype{
		Class: Class(data[0] & 0x0f),
		bits:  uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
		Size:  binary.LittleEndian.Uint32(data[4:8]),
		props: data[8:],
	}
	switch dt.Class {
	case ClassFixedPoint:
		dt.BigEndian = dt.bits&0x01 != 0
		dt.Signed = dt.bits&0x08 != 0
	case ClassFloatPoint:
		dt.BigEndian = dt.bits&0x01 != 0
	case ClassString:
		dt.Pad = StringPad(dt.bits & 0x0f)
		dt.UTF8 = (dt.bits>>4)&0x0f == 1
	case ClassVarLen:
		dt.VarLenString = dt.bits&0x0f == 1
		dt.UTF8 = (dt.bits>>8)&0x0f == 1
	}
	return dt, nil
}

// Encode writes a version 1 datatype message.
func (m *Datatype) Encode(e *binpkg.Encoder) {
	e.Uint8(uint8(m.Class) | 1<<4)
	bits := m.classBits()
	e.Uint8(uint8(bits))
	e.Uint8(uint8(bits >> 8))
	e.Uint8(uint8(bits >> 16))
	e.Uint32(m.Size)

	switch m.Class {
	case ClassFixedPoint:
		e.Uint16(0)
		e.Uint16(uint16(m.Size * 8))
	case ClassFloatPoint:
		e.Put(ieeeProps(m.Size))
	}
}

func (m *Datatype) EncodedSize(binpkg.Sizes) int {
	switch m.Class {
	case ClassFixedPoint:
		return 12
	case ClassFloatPoint:
		return 20
	}
	return 8
}

func (m *Datatype) classBits() uint32 {
	var bits uint32
	if m.BigEndian {
		bits |= 0x01
	}
	switch m.Class {
	case ClassFixedPoint:
		if m.Signed {
			bits |= 0x08
		}
	case ClassFloatPoint:
		// Implied mantissa MSB plus the sign bit position.
		bits |= 1<<5 | (m.Size*8-1)<<8
	case ClassString:
		bits = uint32(m.Pad)
		if m.UTF8 {
			bits |= 1 << 4
		}
	}
	return bits
}

// ieeeProps is the bit-field layout of an IEEE 754 float of the given width:
// offset(2) precision(2) exponent location(1) exponent size(1)
// mantissa location(1) mantissa size(1) exponent bias(4).
func ieeeProps(size uint32) []byte {
	switch size {
	case 4:
		return []byte{0, 0, 32, 0, 23, 8, 0, 23, 127, 0, 0, 0}
	case 8:
		return []byte{0, 0, 64, 0, 52, 11, 0, 52, 0xff, 0x03, 0, 0}
	}
	return make([]byte, 12)
}

// NewInt returns a little-endian integer type of size bytes.
func NewInt(size uint32, signed bool) *Datatype {
	return &Datatype{Class: ClassFixedPoint, Size: size, Signed: signed}
}

// NewFloat returns a little-endian IEEE float of size 4 or 8.
func NewFloat(size uint32) *Datatype {
	return &Datatype{Class: ClassFloatPoint, Size: size}
}

// NewString returns a fixed-length, null-padded UTF-8 string type.
func NewString(size uint32) *Datatype {
	if size == 0 {
		size = 1
	}
	return &Datatype{Class: ClassString, Size: size, Pad: PadNullPad, UTF8: true}
}
