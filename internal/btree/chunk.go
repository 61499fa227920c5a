package btree

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// Chunk locates one stored chunk of a dataset.
type Chunk struct {
	// Offset is the element coordinate of the chunk's first element.
	Offset     []uint64
	Address    uint64
	Size       uint64
	FilterMask uint32
}

// ReadChunks collects every allocated chunk under the chunk tree rooted
// at addr. rank is the dataspace rank; the on-disk keys carry one more
// coordinate for the element size, which is dropped.
func ReadChunks(r *binary.Reader, addr uint64, rank int) ([]Chunk, error) {
	var out []Chunk
	if err := walkChunks(r, addr, rank, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkChunks(r *binary.Reader, addr uint64, rank, depth int, out *[]Chunk) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	nr := r.At(int64(addr))
	n, err := readNode(nr, nodeChunk)
	if err != nil {
		return fmt.Errorf("chunk node at %d: %w", addr, err)
	}
	type keyed struct {
		key   Chunk
		child uint64
	}
	kids := make([]keyed, 0, n.entries)
	for i := 0; i < n.entries; i++ {
		key, err := readChunkKey(nr, rank)
		if err != nil {
			return err
		}
		child, err := nr.Offset()
		if err != nil {
			return err
		}
		kids = append(kids, keyed{key, child})
	}
	for _, k := range kids {
		if n.level > 0 {
			if err := walkChunks(r, k.child, rank, depth+1, out); err != nil {
				return err
			}
			continue
		}
		if nr.IsUndefined(k.child) || k.key.Size == 0 {
			continue
		}
		c := k.key
		c.Address = k.child
		*out = append(*out, c)
	}
	return nil
}

func readChunkKey(r *binary.Reader, rank int) (Chunk, error) {
	size, err := r.Uint32()
	if err != nil {
		return Chunk{}, err
	}
	mask, err := r.Uint32()
	if err != nil {
		return Chunk{}, err
	}
	off := make([]uint64, rank)
	for d := 0; d <= rank; d++ {
		v, err := r.Uint64()
		if err != nil {
			return Chunk{}, err
		}
		if d < rank {
			off[d] = v
		}
	}
	return Chunk{Offset: off, Size: uint64(size), FilterMask: mask}, nil
}
