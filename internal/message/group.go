package message

import (
	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// LinkInfo marks a group that stores its links as link messages, either
// compactly in the header or densely in a fractal heap.
type LinkInfo struct {
	Flags        uint8
	FractalHeap  uint64
	NameIndex    uint64
	CreationTree uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// Dense reports whether the links live in a fractal heap.
func (m *LinkInfo) Dense(sizes binpkg.Sizes) bool {
	return m.FractalHeap != binpkg.Undefined(sizes.OffsetSize)
}

func parseLinkInfo(data []byte, sizes binpkg.Sizes) (*LinkInfo, error) {
	r := bodyReader(data, sizes)
	version, err := r.Uint8()
	if err != nil {
		return nil, ErrTruncated
	}
	if version != 0 {
		return nil, versionError("link info", version)
	}
	li := &LinkInfo{}
	if li.Flags, err = r.Uint8(); err != nil {
		return nil, ErrTruncated
	}
	if li.Flags&0x01 != 0 {
		r.Skip(8)
	}
	if li.FractalHeap, err = r.Offset(); err != nil {
		return nil, ErrTruncated
	}
	if li.NameIndex, err = r.Offset(); err != nil {
		return nil, ErrTruncated
	}
	if li.Flags&0x02 != 0 {
		if li.CreationTree, err = r.Offset(); err != nil {
			return nil, ErrTruncated
		}
	}
	return li, nil
}

// Encode writes an empty compact-storage link info message.
func (m *LinkInfo) Encode(e *binpkg.Encoder) {
	e.Uint8(0)
	e.Uint8(0)
	e.UndefinedOffset()
	e.UndefinedOffset()
}

func (m *LinkInfo) EncodedSize(s binpkg.Sizes) int { return 2 + 2*s.OffsetSize }

// GroupInfo carries link storage thresholds. This module writes only the
// default form.
type GroupInfo struct{}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func (m *GroupInfo) Encode(e *binpkg.Encoder) {
	e.Uint8(0)
	e.Uint8(0)
}

func (m *GroupInfo) EncodedSize(binpkg.Sizes) int { return 2 }

// SymbolTable points at the B-tree and local heap of an old-style group.
type SymbolTable struct {
	BTree uint64
	Heap  uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, sizes binpkg.Sizes) (*SymbolTable, error) {
	r := bodyReader(data, sizes)
	bt, err := r.Offset()
	if err != nil {
		return nil, ErrTruncated
	}
	heap, err := r.Offset()
	if err != nil {
		return nil, ErrTruncated
	}
	return &SymbolTable{BTree: bt, Heap: heap}, nil
}

// FillValue is written into every dataset header this module creates:
// space allocated early, zero fill, fill value undefined by the user.
type FillValue struct{}

func (m *FillValue) Type() Type { return TypeFillValue }

func (m *FillValue) Encode(e *binpkg.Encoder) {
	e.Uint8(3)
	e.Uint8(0x01 | 0x02<<2)
}

func (m *FillValue) EncodedSize(binpkg.Sizes) int { return 2 }
