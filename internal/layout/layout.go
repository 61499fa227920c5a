package layout

import (
	"errors"
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/filter"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported storage layout")
	ErrSelection   = errors.New("selection outside dataspace")
)

// Layout reads raw element bytes from a dataset's storage.
type Layout interface {
	Class() message.LayoutClass
	// ReadSlice returns the block of count elements starting at start, in
	// row-major order.
	ReadSlice(start, count []uint64) ([]byte, error)
}

// Shape bundles what every layout needs to know about the elements.
type Shape struct {
	Dims     []uint64
	MaxDims  []uint64
	ElemSize uint64
}

// NumElements is the product of Dims.
func (s Shape) NumElements() uint64 {
	n := uint64(1)
	for _, d := range s.Dims {
		n *= d
	}
	return n
}

// New selects the reader for dl.
func New(r *binary.Reader, dl *message.DataLayout, ds *message.Dataspace, dt *message.Datatype, fp *message.FilterPipeline) (Layout, error) {
	shape := Shape{ElemSize: uint64(dt.Size)}
	if ds != nil {
		shape.Dims = ds.Dims
		shape.MaxDims = ds.MaxDims
	}
	switch dl.Class {
	case message.LayoutCompact:
		return &Compact{data: dl.CompactData, shape: shape}, nil
	case message.LayoutContiguous:
		return &Contiguous{r: r, addr: dl.Address, shape: shape}, nil
	case message.LayoutChunked:
		pipe, err := filter.NewPipeline(fp, int(dt.Size))
		if err != nil {
			return nil, err
		}
		return newChunked(r, dl, shape, pipe)
	}
	return nil, fmt.Errorf("%w: class %d", ErrUnsupported, dl.Class)
}

// Full returns the start and count selecting the whole dataspace.
func Full(dims []uint64) (start, count []uint64) {
	start = make([]uint64, len(dims))
	count = append([]uint64(nil), dims...)
	return start, count
}

func checkSelection(dims, start, count []uint64) (uint64, error) {
	if len(start) != len(dims) || len(count) != len(dims) {
		return 0, fmt.Errorf("%w: rank %d/%d, dataspace rank %d", ErrSelection, len(start), len(count), len(dims))
	}
	n := uint64(1)
	for d := range dims {
		if start[d]+count[d] > dims[d] {
			return 0, fmt.Errorf("%w: dim %d [%d, %d) exceeds %d", ErrSelection, d, start[d], start[d]+count[d], dims[d])
		}
		n *= count[d]
	}
	return n, nil
}

func strides(dims []uint64, elem uint64) []uint64 {
	s := make([]uint64, len(dims))
	acc := elem
	for d := len(dims) - 1; d >= 0; d-- {
		s[d] = acc
		acc *= dims[d]
	}
	return s
}

// copyBlock copies a count-shaped block from src (shape srcDims, block at
// srcOff) into dst (shape dstDims, block at dstOff). Both are row-major.
func copyBlock(dst []byte, dstDims, dstOff []uint64, src []byte, srcDims, srcOff []uint64, count []uint64, elem uint64) {
	rank := len(count)
	if rank == 0 {
		copy(dst[:elem], src[:elem])
		return
	}
	for _, c := range count {
		if c == 0 {
			return
		}
	}
	ds, ss := strides(dstDims, elem), strides(srcDims, elem)
	run := count[rank-1] * elem
	idx := make([]uint64, rank-1)
	for {
		do := dstOff[rank-1] * elem
		so := srcOff[rank-1] * elem
		for d := 0; d < rank-1; d++ {
			do += (dstOff[d] + idx[d]) * ds[d]
			so += (srcOff[d] + idx[d]) * ss[d]
		}
		copy(dst[do:do+run], src[so:so+run])

		d := rank - 2
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return
		}
	}
}
