package layout

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// Compact storage lives inside the object header.
type Compact struct {
	data  []byte
	shape Shape
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

func (c *Compact) ReadSlice(start, count []uint64) ([]byte, error) {
	n, err := checkSelection(c.shape.Dims, start, count)
	if err != nil {
		return nil, err
	}
	need := c.shape.NumElements() * c.shape.ElemSize
	if uint64(len(c.data)) < need {
		return nil, fmt.Errorf("compact data holds %d bytes, dataspace needs %d", len(c.data), need)
	}
	out := make([]byte, n*c.shape.ElemSize)
	copyBlock(out, count, make([]uint64, len(count)), c.data, c.shape.Dims, start, count, c.shape.ElemSize)
	return out, nil
}
