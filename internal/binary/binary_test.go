package binary

import (
	"bytes"
	"testing"
)

// sliceReaderAt serves ReadAt out of an in-memory buffer.
type sliceReaderAt []byte

func (b sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(b).ReadAt(p, off)
}

func TestEncoderReaderRoundTrip(t *testing.T) {
	sizes := DefaultSizes()
	e := NewEncoder(sizes, 64)
	e.Uint8(0x42)
	e.Uint16(0x0102)
	e.Uint32(0xdeadbeef)
	e.Offset(0x1122334455667788)
	e.Length(96)
	e.UndefinedOffset()

	r := NewReader(sliceReaderAt(e.Bytes()), sizes)
	if v, err := r.Uint8(); err != nil || v != 0x42 {
		t.Fatalf("Uint8 = %#x, %v", v, err)
	}
	if v, err := r.Uint16(); err != nil || v != 0x0102 {
		t.Fatalf("Uint16 = %#x, %v", v, err)
	}
	if v, err := r.Uint32(); err != nil || v != 0xdeadbeef {
		t.Fatalf("Uint32 = %#x, %v", v, err)
	}
	if v, err := r.Offset(); err != nil || v != 0x1122334455667788 {
		t.Fatalf("Offset = %#x, %v", v, err)
	}
	if v, err := r.Length(); err != nil || v != 96 {
		t.Fatalf("Length = %d, %v", v, err)
	}
	v, err := r.Offset()
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsUndefined(v) {
		t.Errorf("expected undefined address, got %#x", v)
	}
	if r.Pos() != int64(e.Len()) {
		t.Errorf("reader consumed %d bytes, encoder wrote %d", r.Pos(), e.Len())
	}
}

func TestNarrowOffsets(t *testing.T) {
	sizes := Sizes{Order: DefaultSizes().Order, OffsetSize: 4, LengthSize: 2}
	e := NewEncoder(sizes, 8)
	e.Offset(0xAABBCCDD)
	e.Length(0x1234)
	if e.Len() != 6 {
		t.Fatalf("encoded %d bytes, want 6", e.Len())
	}
	r := NewReader(sliceReaderAt(e.Bytes()), sizes)
	if v, _ := r.Offset(); v != 0xAABBCCDD {
		t.Errorf("Offset = %#x", v)
	}
	if v, _ := r.Length(); v != 0x1234 {
		t.Errorf("Length = %#x", v)
	}
}

func TestSizesValidate(t *testing.T) {
	tests := []struct {
		sizes Sizes
		ok    bool
	}{
		{DefaultSizes(), true},
		{Sizes{OffsetSize: 4, LengthSize: 4}, true},
		{Sizes{OffsetSize: 3, LengthSize: 8}, false},
		{Sizes{OffsetSize: 8, LengthSize: 16}, false},
	}
	for _, tt := range tests {
		err := tt.sizes.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("Validate(%+v) = %v, want ok=%v", tt.sizes, err, tt.ok)
		}
	}
}

func TestUndefined(t *testing.T) {
	if Undefined(8) != ^uint64(0) {
		t.Error("Undefined(8)")
	}
	if Undefined(4) != 0xFFFFFFFF {
		t.Error("Undefined(4)")
	}
	if Undefined(2) != 0xFFFF {
		t.Error("Undefined(2)")
	}
}

func TestLookup3KnownValues(t *testing.T) {
	// Reference values from hashlittle() with initval 0.
	if got := Lookup3(nil); got != 0xdeadbeef {
		t.Errorf("Lookup3(empty) = %#08x, want 0xdeadbeef", got)
	}
	if got := Lookup3([]byte("Four score and seven years ago")); got != 0x17770551 {
		t.Errorf("Lookup3(four score) = %#08x, want 0x17770551", got)
	}
}

func TestLookup3LengthSensitivity(t *testing.T) {
	seen := make(map[uint32]int)
	for n := 0; n <= 24; n++ {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		seen[Lookup3(data)] = n
	}
	if len(seen) != 25 {
		t.Errorf("expected 25 distinct checksums, got %d", len(seen))
	}
}

func TestEncoderChecksum(t *testing.T) {
	e := NewEncoder(DefaultSizes(), 16)
	e.Put([]byte("OHDR"))
	e.Checksum()
	body := e.Bytes()[:4]
	r := NewReader(sliceReaderAt(e.Bytes()), DefaultSizes()).At(4)
	sum, err := r.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	if sum != Lookup3(body) {
		t.Errorf("stored checksum %#x, want %#x", sum, Lookup3(body))
	}
}

func TestFletcher32(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want uint32
	}{
		{"empty", nil, 0},
		{"one word", []byte{0x01, 0x02}, 0x01020102},
		{"odd tail", []byte{0x01}, 0x01000100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fletcher32(tt.in); got != tt.want {
				t.Errorf("Fletcher32 = %#08x, want %#08x", got, tt.want)
			}
		})
	}
}
