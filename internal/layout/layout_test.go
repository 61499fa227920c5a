package layout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// grid3x3 is a 3x3 uint16 dataset holding 0..8 in row-major order.
func grid3x3() []byte {
	out := make([]byte, 0, 18)
	for i := uint16(0); i < 9; i++ {
		out = binary.LittleEndian.AppendUint16(out, i)
	}
	return out
}

func u16s(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return out
}

func equalU16(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func reader(b []byte) *binpkg.Reader {
	return binpkg.NewReader(bytes.NewReader(b), binpkg.DefaultSizes())
}

var (
	u16     = message.NewInt(2, false)
	space33 = &message.Dataspace{Kind: message.SpaceSimple, Dims: []uint64{3, 3}}
)

func TestContiguousReadSlice(t *testing.T) {
	file := append(make([]byte, 100), grid3x3()...)
	l, err := New(reader(file), message.NewContiguous(100, 18), space33, u16, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		name         string
		start, count []uint64
		want         []uint16
	}{
		{"all", []uint64{0, 0}, []uint64{3, 3}, []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8}},
		{"row", []uint64{1, 0}, []uint64{1, 3}, []uint16{3, 4, 5}},
		{"block", []uint64{1, 1}, []uint64{2, 2}, []uint16{4, 5, 7, 8}},
		{"column", []uint64{0, 2}, []uint64{3, 1}, []uint16{2, 5, 8}},
		{"empty", []uint64{0, 0}, []uint64{0, 3}, []uint16{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.ReadSlice(tt.start, tt.count)
			if err != nil {
				t.Fatalf("ReadSlice: %v", err)
			}
			if !equalU16(u16s(got), tt.want) {
				t.Errorf("got %v, want %v", u16s(got), tt.want)
			}
		})
	}

	if _, err := l.ReadSlice([]uint64{2, 0}, []uint64{2, 3}); !errors.Is(err, ErrSelection) {
		t.Errorf("out of range: err = %v, want ErrSelection", err)
	}
}

func TestContiguousUnallocated(t *testing.T) {
	l, err := New(reader(nil), message.NewContiguous(binpkg.Undefined(8), 0), space33, u16, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := l.ReadSlice(Full(space33.Dims))
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if !bytes.Equal(got, make([]byte, 18)) {
		t.Errorf("unallocated storage should read as zeros, got % x", got)
	}
}

func TestCompactReadSlice(t *testing.T) {
	l, err := New(reader(nil), message.NewCompact(grid3x3()), space33, u16, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := l.ReadSlice([]uint64{0, 1}, []uint64{2, 2})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if want := []uint16{1, 2, 4, 5}; !equalU16(u16s(got), want) {
		t.Errorf("got %v, want %v", u16s(got), want)
	}
}

// chunk2x2 cuts the 2x2 chunk at (r, c) out of grid3x3, zero padded at
// the edges the way stored edge chunks are.
func chunk2x2(r, c uint64) []byte {
	src := grid3x3()
	out := make([]byte, 8)
	for i := uint64(0); i < 2; i++ {
		for j := uint64(0); j < 2; j++ {
			if r+i < 3 && c+j < 3 {
				k := ((r+i)*3 + c + j) * 2
				copy(out[(i*2+j)*2:], src[k:k+2])
			}
		}
	}
	return out
}

func chunkedLayout(index message.ChunkIndex, addr uint64) *message.DataLayout {
	return &message.DataLayout{
		Version:       4,
		Class:         message.LayoutChunked,
		ChunkDims:     []uint64{2, 2},
		ChunkElemSize: 2,
		Index:         index,
		IndexAddress:  addr,
	}
}

func TestChunkedImplicit(t *testing.T) {
	file := make([]byte, 64)
	for _, off := range [][2]uint64{{0, 0}, {0, 2}, {2, 0}, {2, 2}} {
		file = append(file, chunk2x2(off[0], off[1])...)
	}
	l, err := New(reader(file), chunkedLayout(message.IndexImplicit, 64), space33, u16, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := l.ReadSlice(Full(space33.Dims))
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if want := []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8}; !equalU16(u16s(got), want) {
		t.Errorf("got %v, want %v", u16s(got), want)
	}
	got, err = l.ReadSlice([]uint64{1, 1}, []uint64{2, 1})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if want := []uint16{4, 7}; !equalU16(u16s(got), want) {
		t.Errorf("got %v, want %v", u16s(got), want)
	}
}

func TestChunkedSingleDeflate(t *testing.T) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(grid3x3())
	w.Close()
	file := append(make([]byte, 32), buf.Bytes()...)

	dl := &message.DataLayout{
		Version:      4,
		Class:        message.LayoutChunked,
		ChunkDims:    []uint64{3, 3},
		Index:        message.IndexSingleChunk,
		IndexAddress: 32,
		ChunkFlags:   0x02,
		FilteredSize: uint64(buf.Len()),
	}
	fp := &message.FilterPipeline{Filters: []message.Filter{{ID: message.FilterDeflate}}}
	l, err := New(reader(file), dl, space33, u16, fp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := l.ReadSlice([]uint64{2, 0}, []uint64{1, 3})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if want := []uint16{6, 7, 8}; !equalU16(u16s(got), want) {
		t.Errorf("got %v, want %v", u16s(got), want)
	}
}

func TestChunkedFixedArray(t *testing.T) {
	e := binpkg.NewEncoder(binpkg.DefaultSizes(), 256)
	// header at 0
	e.Put([]byte("FAHD"))
	e.Uint8(0)
	e.Uint8(0)
	e.Uint8(8)  // entry size
	e.Uint8(10) // page bits
	e.Length(4)
	e.Offset(64)
	e.Zeros(64 - e.Len())
	// data block at 64; chunk (2,0) is left unallocated
	e.Put([]byte("FADB"))
	e.Uint8(0)
	e.Uint8(0)
	e.Offset(0)
	e.Offset(128)
	e.Offset(136)
	e.UndefinedOffset()
	e.Offset(152)
	e.Zeros(128 - e.Len())
	e.Put(chunk2x2(0, 0))
	e.Put(chunk2x2(0, 2))
	e.Put(chunk2x2(2, 0))
	e.Put(chunk2x2(2, 2))

	l, err := New(reader(e.Bytes()), chunkedLayout(message.IndexFixedArray, 0), space33, u16, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := l.ReadSlice(Full(space33.Dims))
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if want := []uint16{0, 1, 2, 3, 4, 5, 0, 7, 8}; !equalU16(u16s(got), want) {
		t.Errorf("got %v, want %v", u16s(got), want)
	}
}

func TestChunkedExtensibleArrayIndexBlock(t *testing.T) {
	// three frames of 1x3, one chunk per frame, unlimited first dimension
	space := &message.Dataspace{Kind: message.SpaceSimple, Dims: []uint64{3, 3}, MaxDims: []uint64{binpkg.Undefined(8), 3}}
	e := binpkg.NewEncoder(binpkg.DefaultSizes(), 512)
	e.Put([]byte("EAHD"))
	e.Uint8(0)
	e.Uint8(0)
	e.Put([]byte{8, 32, 4, 16, 4, 10})
	for i := 0; i < 4; i++ {
		e.Length(0)
	}
	e.Length(3) // max index set
	e.Length(3)
	e.Offset(128)
	e.Zeros(128 - e.Len())
	e.Put([]byte("EAIB"))
	e.Uint8(0)
	e.Uint8(0)
	e.Offset(0)
	e.Offset(300)
	e.Offset(306)
	e.Offset(312)
	e.UndefinedOffset()
	e.Zeros(300 - e.Len())
	e.Put(grid3x3())

	dl := &message.DataLayout{
		Version:      4,
		Class:        message.LayoutChunked,
		ChunkDims:    []uint64{1, 3},
		Index:        message.IndexExtensibleArray,
		IndexAddress: 0,
	}
	l, err := New(reader(e.Bytes()), dl, space, u16, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := l.ReadSlice([]uint64{1, 0}, []uint64{2, 3})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	if want := []uint16{3, 4, 5, 6, 7, 8}; !equalU16(u16s(got), want) {
		t.Errorf("got %v, want %v", u16s(got), want)
	}
}

func TestSuperBlocks(t *testing.T) {
	p := eaParams{maxBits: 32, dataMinElems: 16, secMinPtrs: 4}
	sb := p.superBlocks()
	if len(sb) != 29 {
		t.Fatalf("got %d super blocks, want 29", len(sb))
	}
	want := []superBlock{
		{ndata: 1, elems: 16, startIdx: 0, startData: 0},
		{ndata: 1, elems: 32, startIdx: 16, startData: 1},
		{ndata: 2, elems: 32, startIdx: 48, startData: 2},
		{ndata: 2, elems: 64, startIdx: 112, startData: 4},
	}
	for i, w := range want {
		if sb[i] != w {
			t.Errorf("super block %d = %+v, want %+v", i, sb[i], w)
		}
	}
}
