package binary

import (
	"encoding/binary"
	"io"
)

// Reader decodes fixed and variable-width fields from a positioned source.
type Reader struct {
	src   io.ReaderAt
	sizes Sizes
	pos   int64
}

// NewReader returns a Reader at position zero.
func NewReader(src io.ReaderAt, sizes Sizes) *Reader {
	return &Reader{src: src, sizes: sizes}
}

// At returns an independent Reader over the same source positioned at off.
func (r *Reader) At(off int64) *Reader {
	return &Reader{src: r.src, sizes: r.sizes, pos: off}
}

// WithSizes returns a copy of r using different field widths.
func (r *Reader) WithSizes(sizes Sizes) *Reader {
	return &Reader{src: r.src, sizes: sizes, pos: r.pos}
}

func (r *Reader) Pos() int64 { return r.pos }
func (r *Reader) Sizes() Sizes { return r.sizes }
func (r *Reader) OffsetSize() int { return r.sizes.OffsetSize }
func (r *Reader) LengthSize() int { return r.sizes.LengthSize }
func (r *Reader) Order() binary.ByteOrder { return r.sizes.Order }

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Bytes reads exactly n bytes and advances.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Peek reads n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.src.ReadAt(buf, r.pos); err != nil {
		return nil, err
	}
	return buf, nil
}

// Uint reads an n-byte unsigned integer.
func (r *Reader) Uint(n int) (uint64, error) {
	buf, err := r.Bytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(buf, n, r.sizes.Order), nil
}

func (r *Reader) Uint8() (uint8, error) {
	v, err := r.Uint(1)
	return uint8(v), err
}

func (r *Reader) Uint16() (uint16, error) {
	v, err := r.Uint(2)
	return uint16(v), err
}

func (r *Reader) Uint32() (uint32, error) {
	v, err := r.Uint(4)
	return uint32(v), err
}

func (r *Reader) Uint64() (uint64, error) { return r.Uint(8) }

// Offset reads a file address.
func (r *Reader) Offset() (uint64, error) { return r.Uint(r.sizes.OffsetSize) }

// Length reads a length field.
func (r *Reader) Length() (uint64, error) { return r.Uint(r.sizes.LengthSize) }

// IsUndefined reports whether addr is the undefined address for this file.
func (r *Reader) IsUndefined(addr uint64) bool {
	return addr == Undefined(r.sizes.OffsetSize)
}
