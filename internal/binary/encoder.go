package binary

import "encoding/binary"

// Encoder accumulates an on-disk structure in memory.
type Encoder struct {
	sizes Sizes
	buf   []byte
}

// NewEncoder returns an empty Encoder with room for capacity bytes.
func NewEncoder(sizes Sizes, capacity int) *Encoder {
	return &Encoder{sizes: sizes, buf: make([]byte, 0, capacity)}
}

func (e *Encoder) Sizes() Sizes { return e.sizes }
func (e *Encoder) OffsetSize() int { return e.sizes.OffsetSize }
func (e *Encoder) LengthSize() int { return e.sizes.LengthSize }
func (e *Encoder) Order() binary.ByteOrder { return e.sizes.Order }
func (e *Encoder) Len() int { return len(e.buf) }

// Bytes returns the encoded buffer. The slice aliases the Encoder.
func (e *Encoder) Bytes() []byte { return e.buf }

// Put appends raw bytes.
func (e *Encoder) Put(p []byte) { e.buf = append(e.buf, p...) }

// Zeros appends n zero bytes.
func (e *Encoder) Zeros(n int) {
	for i := 0; i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// Uint appends v as an n-byte unsigned integer.
func (e *Encoder) Uint(v uint64, n int) {
	switch n {
	case 1:
		e.buf = append(e.buf, byte(v))
	case 2:
		var b [2]byte
		e.sizes.Order.PutUint16(b[:], uint16(v))
		e.buf = append(e.buf, b[:]...)
	case 4:
		var b [4]byte
		e.sizes.Order.PutUint32(b[:], uint32(v))
		e.buf = append(e.buf, b[:]...)
	case 8:
		var b [8]byte
		e.sizes.Order.PutUint64(b[:], v)
		e.buf = append(e.buf, b[:]...)
	default:
		for i := 0; i < n; i++ {
			e.buf = append(e.buf, byte(v>>(8*uint(i))))
		}
	}
}

func (e *Encoder) Uint8(v uint8) { e.Uint(uint64(v), 1) }
func (e *Encoder) Uint16(v uint16) { e.Uint(uint64(v), 2) }
func (e *Encoder) Uint32(v uint32) { e.Uint(uint64(v), 4) }
func (e *Encoder) Uint64(v uint64) { e.Uint(v, 8) }

// Offset appends a file address.
func (e *Encoder) Offset(addr uint64) { e.Uint(addr, e.sizes.OffsetSize) }

// Length appends a length field.
func (e *Encoder) Length(n uint64) { e.Uint(n, e.sizes.LengthSize) }

// UndefinedOffset appends the undefined address.
func (e *Encoder) UndefinedOffset() { e.Offset(Undefined(e.sizes.OffsetSize)) }

// Checksum appends the lookup3 checksum of everything encoded so far.
func (e *Encoder) Checksum() {
	e.Uint32(Lookup3(e.buf))
}
