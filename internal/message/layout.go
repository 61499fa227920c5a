package message

import (
	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// LayoutClass is how a dataset's raw data is stored.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// ChunkIndex is the indexing structure of a chunked layout. Layout messages
// before version 4 always use a version 1 B-tree.
type ChunkIndex uint8

const (
	IndexBTreeV1         ChunkIndex = 0
	IndexSingleChunk     ChunkIndex = 1
	IndexImplicit        ChunkIndex = 2
	IndexFixedArray      ChunkIndex = 3
	IndexExtensibleArray ChunkIndex = 4
	IndexBTreeV2         ChunkIndex = 5
)

// DataLayout is a decoded layout message.
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Compact
	CompactData []byte

	// Contiguous
	Address uint64
	Size    uint64

	// Chunked. ChunkDims has one entry per dataset dimension; the element
	// size that the format appends is split out into ChunkElemSize.
	ChunkDims     []uint64
	ChunkElemSize uint32
	Index         ChunkIndex
	IndexAddress  uint64
	ChunkFlags    uint8

	// Single-chunk index with filters.
	FilteredSize uint64
	FilterMask   uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

func parseDataLayout(data []byte, sizes binpkg.Sizes) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	l := &DataLayout{Version: data[0]}
	r := bodyReader(data, sizes)
	var err error
	switch l.Version {
	case 1, 2:
		err = parseLayoutV1V2(l, r)
	case 3, 4:
		err = parseLayoutV3V4(l, r)
	default:
		return nil, versionError("data layout", l.Version)
	}
	if err != nil {
		return nil, ErrTruncated
	}
	return l, nil
}

func parseLayoutV1V2(l *DataLayout, r *binpkg.Reader) error {
	r.Skip(1)
	ndims, err := r.Uint8()
	if err != nil {
		return err
	}
	class, err := r.Uint8()
	if err != nil {
		return err
	}
	l.Class = LayoutClass(class)
	r.Skip(5)

	if l.Class != LayoutCompact {
		if l.Address, err = r.Offset(); err != nil {
			return err
		}
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		dims[i] = uint64(v)
	}

	switch l.Class {
	case LayoutChunked:
		l.IndexAddress = l.Address
		l.Address = 0
		if n := len(dims); n > 0 {
			l.ChunkDims = dims[:n-1]
			l.ChunkElemSize = uint32(dims[n-1])
		}
	case LayoutCompact:
		size, err := r.Uint32()
		if err != nil {
			return err
		}
		if l.CompactData, err = r.Bytes(int(size)); err != nil {
			return err
		}
	}
	return nil
}

func parseLayoutV3V4(l *DataLayout, r *binpkg.Reader) error {
	r.Skip(1)
	class, err := r.Uint8()
	if err != nil {
		return err
	}
	l.Class = LayoutClass(class)

	switch l.Class {
	case LayoutCompact:
		size, err := r.Uint16()
		if err != nil {
			return err
		}
		l.CompactData, err = r.Bytes(int(size))
		return err

	case LayoutContiguous:
		if l.Address, err = r.Offset(); err != nil {
			return err
		}
		l.Size, err = r.Length()
		return err

	case LayoutChunked:
		if l.Version == 3 {
			return parseChunkedV3(l, r)
		}
		return parseChunkedV4(l, r)
	}
	return nil
}

func parseChunkedV3(l *DataLayout, r *binpkg.Reader) error {
	ndims, err := r.Uint8()
	if err != nil {
		return err
	}
	if l.IndexAddress, err = r.Offset(); err != nil {
		return err
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		dims[i] = uint64(v)
	}
	l.Index = IndexBTreeV1
	if n := len(dims); n > 0 {
		l.ChunkDims = dims[:n-1]
		l.ChunkElemSize = uint32(dims[n-1])
	}
	return nil
}

func parseChunkedV4(l *DataLayout, r *binpkg.Reader) error {
	var err error
	if l.ChunkFlags, err = r.Uint8(); err != nil {
		return err
	}
	ndims, err := r.Uint8()
	if err != nil {
		return err
	}
	width, err := r.Uint8()
	if err != nil {
		return err
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		if dims[i], err = r.Uint(int(width)); err != nil {
			return err
		}
	}
	if n := len(dims); n > 0 {
		l.ChunkDims = dims[:n-1]
		l.ChunkElemSize = uint32(dims[n-1])
	}

	index, err := r.Uint8()
	if err != nil {
		return err
	}
	l.Index = ChunkIndex(index)
	switch l.Index {
	case IndexSingleChunk:
		if l.ChunkFlags&0x02 != 0 {
			if l.FilteredSize, err = r.Length(); err != nil {
				return err
			}
			if l.FilterMask, err = r.Uint32(); err != nil {
				return err
			}
		}
	case IndexFixedArray:
		r.Skip(1) // page bits
	case IndexExtensibleArray:
		r.Skip(5)
	case IndexBTreeV2:
		r.Skip(6)
	}
	l.IndexAddress, err = r.Offset()
	return err
}

// Encode writes a version 3 layout. Only compact and contiguous storage
// are produced by this module.
func (m *DataLayout) Encode(e *binpkg.Encoder) {
	e.Uint8(3)
	e.Uint8(uint8(m.Class))
	switch m.Class {
	case LayoutCompact:
		e.Uint16(uint16(len(m.CompactData)))
		e.Put(m.CompactData)
	case LayoutContiguous:
		e.Offset(m.Address)
		e.Length(m.Size)
	}
}

func (m *DataLayout) EncodedSize(s binpkg.Sizes) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)
	case LayoutContiguous:
		return 2 + s.OffsetSize + s.LengthSize
	}
	return 2
}

// NewContiguous returns a contiguous layout for size bytes at addr.
func NewContiguous(addr, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

// NewCompact returns a compact layout holding data inside the header.
func NewCompact(data []byte) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutCompact, CompactData: data}
}
