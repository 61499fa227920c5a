package layout

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// Contiguous storage is one block of row-major elements.
type Contiguous struct {
	r     *binary.Reader
	addr  uint64
	shape Shape
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Address is where the data block starts, or the undefined address when
// no storage has been allocated.
func (c *Contiguous) Address() uint64 { return c.addr }

// RowSize is the byte size of one index along the outermost dimension.
func (c *Contiguous) RowSize() uint64 {
	n := c.shape.ElemSize
	for _, d := range c.shape.Dims[min(1, len(c.shape.Dims)):] {
		n *= d
	}
	return n
}

func (c *Contiguous) ReadSlice(start, count []uint64) ([]byte, error) {
	n, err := checkSelection(c.shape.Dims, start, count)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n*c.shape.ElemSize)
	if n == 0 || c.r.IsUndefined(c.addr) {
		return out, nil
	}
	if len(c.shape.Dims) == 0 {
		buf, err := c.r.At(int64(c.addr)).Bytes(int(c.shape.ElemSize))
		if err != nil {
			return nil, fmt.Errorf("contiguous data at %d: %w", c.addr, err)
		}
		return buf, nil
	}

	row := c.RowSize()
	buf, err := c.r.At(int64(c.addr + start[0]*row)).Bytes(int(count[0] * row))
	if err != nil {
		return nil, fmt.Errorf("contiguous data at %d: %w", c.addr, err)
	}
	srcDims := append([]uint64{count[0]}, c.shape.Dims[1:]...)
	srcOff := append([]uint64{0}, start[1:]...)
	if equalDims(srcDims, count) {
		return buf, nil
	}
	copyBlock(out, count, make([]uint64, len(count)), buf, srcDims, srcOff, count, c.shape.ElemSize)
	return out, nil
}

func equalDims(a, b []uint64) bool {
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
