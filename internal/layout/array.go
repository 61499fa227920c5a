package layout

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/btree"
)

var (
	signatureFAHeader = []byte("FAHD")
	signatureFAData   = []byte("FADB")
	signatureEAHeader = []byte("EAHD")
	signatureEAIndex  = []byte("EAIB")
	signatureEASecond = []byte("EASB")
	signatureEAData   = []byte("EADB")
)

func expect(r *binary.Reader, sig []byte) error {
	got, err := r.Bytes(len(sig))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, sig) {
		return fmt.Errorf("%w: signature %q, want %q", ErrUnsupported, got, sig)
	}
	return nil
}

// blockPrefix skips the version, client id and header address that open
// every array block after its signature.
func blockPrefix(r *binary.Reader, sig []byte) error {
	if err := expect(r, sig); err != nil {
		return err
	}
	r.Skip(2 + int64(r.OffsetSize()))
	return nil
}

func (c *Chunked) keep(out []btree.Chunk, ch btree.Chunk, g grid, i uint64) []btree.Chunk {
	if ch.Address == 0 || c.r.IsUndefined(ch.Address) {
		return out
	}
	ch.Offset = g.offset(i)
	return append(out, ch)
}

func (c *Chunked) readFixedArray() ([]btree.Chunk, error) {
	hr := c.r.At(int64(c.dl.IndexAddress))
	if err := expect(hr, signatureFAHeader); err != nil {
		return nil, err
	}
	hr.Skip(2) // version, client id
	entrySize, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	pageBits, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	n, err := hr.Length()
	if err != nil {
		return nil, err
	}
	dataAddr, err := hr.Offset()
	if err != nil {
		return nil, err
	}
	if n > 1<<pageBits {
		return nil, fmt.Errorf("%w: paged fixed array (%d entries)", ErrUnsupported, n)
	}
	if c.r.IsUndefined(dataAddr) {
		return nil, nil
	}

	dr := c.r.At(int64(dataAddr))
	if err := blockPrefix(dr, signatureFAData); err != nil {
		return nil, err
	}
	g := c.grid(false)
	var out []btree.Chunk
	for i := uint64(0); i < n; i++ {
		ch, err := c.readEntry(dr, int(entrySize))
		if err != nil {
			return nil, fmt.Errorf("fixed array entry %d: %w", i, err)
		}
		out = c.keep(out, ch, g, i)
	}
	return out, nil
}

// eaParams are the creation parameters of an extensible array.
type eaParams struct {
	elemSize     int
	maxBits      int
	indexElems   uint64
	dataMinElems uint64
	secMinPtrs   uint64
	pageBits     int
}

// superBlock describes one row of the extensible array's super block
// table: ndata data blocks of elems elements each.
type superBlock struct {
	ndata     uint64
	elems     uint64
	startIdx  uint64
	startData uint64
}

func (p eaParams) superBlocks() []superBlock {
	n := 1 + p.maxBits - bits.Len64(p.dataMinElems) + 1
	out := make([]superBlock, n)
	var idx, dblk uint64
	for u := range out {
		out[u] = superBlock{
			ndata:     1 << (u / 2),
			elems:     (1 << ((u + 1) / 2)) * p.dataMinElems,
			startIdx:  idx,
			startData: dblk,
		}
		idx += out[u].ndata * out[u].elems
		dblk += out[u].ndata
	}
	return out
}

func (c *Chunked) readExtensibleArray() ([]btree.Chunk, error) {
	hr := c.r.At(int64(c.dl.IndexAddress))
	if err := expect(hr, signatureEAHeader); err != nil {
		return nil, err
	}
	hr.Skip(2)
	raw, err := hr.Bytes(6)
	if err != nil {
		return nil, err
	}
	p := eaParams{
		elemSize:     int(raw[0]),
		maxBits:      int(raw[1]),
		indexElems:   uint64(raw[2]),
		dataMinElems: uint64(raw[3]),
		secMinPtrs:   uint64(raw[4]),
		pageBits:     int(raw[5]),
	}
	if p.dataMinElems == 0 || p.secMinPtrs == 0 {
		return nil, fmt.Errorf("%w: extensible array parameters %+v", ErrUnsupported, p)
	}
	hr.Skip(4 * int64(hr.LengthSize())) // block statistics
	maxIdx, err := hr.Length()
	if err != nil {
		return nil, err
	}
	hr.Skip(int64(hr.LengthSize()))
	indexAddr, err := hr.Offset()
	if err != nil {
		return nil, err
	}
	if c.r.IsUndefined(indexAddr) {
		return nil, nil
	}

	ir := c.r.At(int64(indexAddr))
	if err := blockPrefix(ir, signatureEAIndex); err != nil {
		return nil, err
	}
	g := c.grid(true)
	var out []btree.Chunk
	i := uint64(0)
	for ; i < p.indexElems; i++ {
		ch, err := c.readEntry(ir, p.elemSize)
		if err != nil {
			return nil, fmt.Errorf("extensible array entry %d: %w", i, err)
		}
		if i < maxIdx {
			out = c.keep(out, ch, g, i)
		}
	}
	if maxIdx <= p.indexElems {
		return out, nil
	}

	sblks := p.superBlocks()
	// super blocks whose data block addresses live in the index block
	inIndex := 2 * (bits.Len64(p.secMinPtrs) - 1)
	ndataAddrs := 2 * (p.secMinPtrs - 1)
	dataAddrs := make([]uint64, ndataAddrs)
	for k := range dataAddrs {
		if dataAddrs[k], err = ir.Offset(); err != nil {
			return nil, err
		}
	}
	secAddrs := make([]uint64, max(0, len(sblks)-inIndex))
	for k := range secAddrs {
		if secAddrs[k], err = ir.Offset(); err != nil {
			return nil, err
		}
	}

	offWidth := (p.maxBits + 7) / 8
	for s := 0; s < len(sblks) && sblks[s].startIdx+p.indexElems < maxIdx; s++ {
		sb := sblks[s]
		var blocks []uint64
		if s < inIndex {
			end := min(sb.startData+sb.ndata, uint64(len(dataAddrs)))
			blocks = dataAddrs[sb.startData:end]
		} else {
			addr := secAddrs[s-inIndex]
			if c.r.IsUndefined(addr) {
				continue
			}
			if blocks, err = c.readSecondary(addr, sb, p, offWidth); err != nil {
				return nil, err
			}
		}
		for b, addr := range blocks {
			first := p.indexElems + sb.startIdx + uint64(b)*sb.elems
			if first >= maxIdx {
				break
			}
			if c.r.IsUndefined(addr) {
				continue
			}
			if sb.elems > 1<<p.pageBits {
				return nil, fmt.Errorf("%w: paged extensible array data block", ErrUnsupported)
			}
			dr := c.r.At(int64(addr))
			if err := blockPrefix(dr, signatureEAData); err != nil {
				return nil, err
			}
			dr.Skip(int64(offWidth))
			for e := uint64(0); e < sb.elems && first+e < maxIdx; e++ {
				ch, err := c.readEntry(dr, p.elemSize)
				if err != nil {
					return nil, fmt.Errorf("extensible array entry %d: %w", first+e, err)
				}
				out = c.keep(out, ch, g, first+e)
			}
		}
	}
	return out, nil
}

func (c *Chunked) readSecondary(addr uint64, sb superBlock, p eaParams, offWidth int) ([]uint64, error) {
	sr := c.r.At(int64(addr))
	if err := blockPrefix(sr, signatureEASecond); err != nil {
		return nil, err
	}
	sr.Skip(int64(offWidth))
	if sb.elems > 1<<p.pageBits {
		return nil, fmt.Errorf("%w: paged extensible array data block", ErrUnsupported)
	}
	out := make([]uint64, sb.ndata)
	var err error
	for k := range out {
		if out[k], err = sr.Offset(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
