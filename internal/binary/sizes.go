package binary

import (
	"encoding/binary"
	"errors"
)

// ErrInvalidSize is returned when a superblock declares an unusable field width.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Sizes describes how addresses and lengths are encoded in one file.
type Sizes struct {
	Order      binary.ByteOrder
	OffsetSize int
	LengthSize int
}

// DefaultSizes is the layout used for files this module creates and for
// probing a superblock before its real widths are known.
func DefaultSizes() Sizes {
	return Sizes{Order: binary.LittleEndian, OffsetSize: 8, LengthSize: 8}
}

// Validate checks that both widths are ones the format allows.
func (s Sizes) Validate() error {
	for _, n := range []int{s.OffsetSize, s.LengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return ErrInvalidSize
		}
	}
	return nil
}

// Undefined is the all-ones sentinel for a field n bytes wide.
func Undefined(n int) uint64 {
	if n >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * uint(n))) - 1
}

// DecodeUint reads an n-byte unsigned integer from buf.
func DecodeUint(buf []byte, n int, order binary.ByteOrder) uint64 {
	switch n {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
