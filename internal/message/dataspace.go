package message

import (
	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// SpaceKind distinguishes scalar, simple and null dataspaces.
type SpaceKind uint8

const (
	SpaceScalar SpaceKind = 0
	SpaceSimple SpaceKind = 1
	SpaceNull   SpaceKind = 2
)

// Dataspace describes the shape of a dataset.
type Dataspace struct {
	Kind    SpaceKind
	Dims    []uint64
	MaxDims []uint64
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// NumElements is the product of the dimensions; 1 for a scalar, 0 for null.
func (m *Dataspace) NumElements() uint64 {
	switch m.Kind {
	case SpaceNull:
		return 0
	case SpaceScalar:
		return 1
	}
	n := uint64(1)
	for _, d := range m.Dims {
		n *= d
	}
	return n
}

func (m *Dataspace) IsScalar() bool { return m.Kind == SpaceScalar }

func parseDataspace(data []byte, sizes binpkg.Sizes) (*Dataspace, error) {
	if len(data) < 4 {
		return nil, ErrTruncated
	}
	version, rank, flags := data[0], int(data[1]), data[2]
	ds := &Dataspace{Kind: SpaceSimple}

	r := bodyReader(data, sizes)
	switch version {
	case 1:
		r.Skip(8)
		if rank == 0 {
			ds.Kind = SpaceScalar
		}
	case 2:
		ds.Kind = SpaceKind(data[3])
		r.Skip(4)
	default:
		return nil, versionError("dataspace", version)
	}

	ds.Dims = make([]uint64, rank)
	for i := range ds.Dims {
		v, err := r.Length()
		if err != nil {
			return nil, ErrTruncated
		}
		ds.Dims[i] = v
	}
	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			v, err := r.Length()
			if err != nil {
				return nil, ErrTruncated
			}
			ds.MaxDims[i] = v
		}
	}
	return ds, nil
}

// Encode writes a version 2 dataspace.
func (m *Dataspace) Encode(e *binpkg.Encoder) {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 1
	}
	e.Uint8(2)
	e.Uint8(uint8(len(m.Dims)))
	e.Uint8(flags)
	e.Uint8(uint8(m.Kind))
	for _, d := range m.Dims {
		e.Length(d)
	}
	for _, d := range m.MaxDims {
		e.Length(d)
	}
}

func (m *Dataspace) EncodedSize(s binpkg.Sizes) int {
	return 4 + (len(m.Dims)+len(m.MaxDims))*s.LengthSize
}

// NewDataspace returns a simple dataspace, or a scalar one when dims is empty.
func NewDataspace(dims ...uint64) *Dataspace {
	if len(dims) == 0 {
		return &Dataspace{Kind: SpaceScalar}
	}
	return &Dataspace{Kind: SpaceSimple, Dims: append([]uint64(nil), dims...)}
}
