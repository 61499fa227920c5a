package layout

import (
	"fmt"
	"sync"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/btree"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/filter"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// Chunked storage is split into equally shaped chunks located through an
// index. The index is loaded on first read.
type Chunked struct {
	r     *binary.Reader
	dl    *message.DataLayout
	shape Shape
	pipe  *filter.Pipeline

	chunkDims  []uint64
	chunkBytes uint64

	once   sync.Once
	chunks []btree.Chunk
	err    error
}

func newChunked(r *binary.Reader, dl *message.DataLayout, shape Shape, pipe *filter.Pipeline) (*Chunked, error) {
	if len(dl.ChunkDims) != len(shape.Dims) {
		return nil, fmt.Errorf("%w: chunk rank %d, dataspace rank %d", ErrUnsupported, len(dl.ChunkDims), len(shape.Dims))
	}
	c := &Chunked{r: r, dl: dl, shape: shape, pipe: pipe, chunkDims: dl.ChunkDims, chunkBytes: shape.ElemSize}
	for _, d := range dl.ChunkDims {
		if d == 0 {
			return nil, fmt.Errorf("%w: zero chunk dimension", ErrUnsupported)
		}
		c.chunkBytes *= d
	}
	return c, nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// ChunkDims is the shape of one chunk.
func (c *Chunked) ChunkDims() []uint64 { return c.chunkDims }

// Chunks returns the allocated chunks.
func (c *Chunked) Chunks() ([]btree.Chunk, error) {
	c.once.Do(func() { c.chunks, c.err = c.loadIndex() })
	return c.chunks, c.err
}

func (c *Chunked) ReadSlice(start, count []uint64) ([]byte, error) {
	n, err := checkSelection(c.shape.Dims, start, count)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n*c.shape.ElemSize)
	if n == 0 {
		return out, nil
	}
	chunks, err := c.Chunks()
	if err != nil {
		return nil, err
	}

	rank := len(c.shape.Dims)
	lo := make([]uint64, rank)
	span := make([]uint64, rank)
	dstOff := make([]uint64, rank)
	srcOff := make([]uint64, rank)
	for _, ch := range chunks {
		if !c.overlap(ch.Offset, start, count, lo, span) {
			continue
		}
		data, err := c.decode(ch)
		if err != nil {
			return nil, err
		}
		for d := 0; d < rank; d++ {
			dstOff[d] = lo[d] - start[d]
			srcOff[d] = lo[d] - ch.Offset[d]
		}
		copyBlock(out, count, dstOff, data, c.chunkDims, srcOff, span, c.shape.ElemSize)
	}
	return out, nil
}

// overlap intersects the chunk at off with the selection, filling lo and
// span with the intersection.
func (c *Chunked) overlap(off, start, count, lo, span []uint64) bool {
	for d := range off {
		a := max(off[d], start[d])
		b := min(off[d]+c.chunkDims[d], start[d]+count[d])
		if a >= b {
			return false
		}
		lo[d], span[d] = a, b-a
	}
	return true
}

func (c *Chunked) decode(ch btree.Chunk) ([]byte, error) {
	raw, err := c.r.At(int64(ch.Address)).Bytes(int(ch.Size))
	if err != nil {
		return nil, fmt.Errorf("chunk at %d: %w", ch.Address, err)
	}
	data, err := c.pipe.Decode(raw, ch.FilterMask)
	if err != nil {
		return nil, fmt.Errorf("chunk at %d: %w", ch.Address, err)
	}
	if uint64(len(data)) < c.chunkBytes {
		return nil, fmt.Errorf("chunk at %d decoded to %d bytes, want %d", ch.Address, len(data), c.chunkBytes)
	}
	return data, nil
}

func (c *Chunked) loadIndex() ([]btree.Chunk, error) {
	if c.r.IsUndefined(c.dl.IndexAddress) {
		return nil, nil
	}
	switch c.dl.Index {
	case message.IndexBTreeV1:
		return btree.ReadChunks(c.r, c.dl.IndexAddress, len(c.shape.Dims))
	case message.IndexSingleChunk:
		size, mask := c.chunkBytes, uint32(0)
		if c.dl.ChunkFlags&0x02 != 0 {
			size, mask = c.dl.FilteredSize, c.dl.FilterMask
		}
		return []btree.Chunk{{Offset: make([]uint64, len(c.shape.Dims)), Address: c.dl.IndexAddress, Size: size, FilterMask: mask}}, nil
	case message.IndexImplicit:
		g := c.grid(false)
		out := make([]btree.Chunk, g.count())
		for i := range out {
			out[i] = btree.Chunk{
				Offset:  g.offset(uint64(i)),
				Address: c.dl.IndexAddress + uint64(i)*c.chunkBytes,
				Size:    c.chunkBytes,
			}
		}
		return out, nil
	case message.IndexFixedArray:
		return c.readFixedArray()
	case message.IndexExtensibleArray:
		return c.readExtensibleArray()
	}
	return nil, fmt.Errorf("%w: chunk index type %d", ErrUnsupported, c.dl.Index)
}

// grid maps linear chunk indexes to element offsets.
type grid struct {
	order  []int // dimensions, slowest first
	counts []uint64
	chunk  []uint64
}

// grid builds the chunk grid. With swizzle set, the single unlimited
// dimension is moved to the slowest position as extensible arrays expect.
func (c *Chunked) grid(swizzle bool) grid {
	rank := len(c.shape.Dims)
	g := grid{order: make([]int, 0, rank), counts: make([]uint64, rank), chunk: c.chunkDims}
	for d := 0; d < rank; d++ {
		g.counts[d] = (c.shape.Dims[d] + c.chunkDims[d] - 1) / c.chunkDims[d]
	}
	unlimited := -1
	if swizzle {
		for d, m := range c.shape.MaxDims {
			if m == binary.Undefined(c.r.LengthSize()) {
				unlimited = d
				break
			}
		}
	}
	if unlimited >= 0 {
		g.order = append(g.order, unlimited)
	}
	for d := 0; d < rank; d++ {
		if d != unlimited {
			g.order = append(g.order, d)
		}
	}
	return g
}

func (g grid) count() uint64 {
	n := uint64(1)
	for _, v := range g.counts {
		n *= v
	}
	return n
}

func (g grid) offset(i uint64) []uint64 {
	off := make([]uint64, len(g.counts))
	for k := len(g.order) - 1; k >= 0; k-- {
		d := g.order[k]
		off[d] = (i % g.counts[d]) * g.chunk[d]
		i /= g.counts[d]
	}
	return off
}

// readEntry decodes one fixed or extensible array element.
func (c *Chunked) readEntry(r *binary.Reader, entrySize int) (btree.Chunk, error) {
	addr, err := r.Offset()
	if err != nil {
		return btree.Chunk{}, err
	}
	ch := btree.Chunk{Address: addr, Size: c.chunkBytes}
	if c.dl.ChunkFlags&0x02 == 0 && c.pipe.Len() == 0 {
		return ch, nil
	}
	width := entrySize - r.OffsetSize() - 4
	if width <= 0 || width > 8 {
		return btree.Chunk{}, fmt.Errorf("%w: filtered entry size %d", ErrUnsupported, entrySize)
	}
	if ch.Size, err = r.Uint(width); err != nil {
		return btree.Chunk{}, err
	}
	if ch.FilterMask, err = r.Uint32(); err != nil {
		return btree.Chunk{}, err
	}
	return ch, nil
}
