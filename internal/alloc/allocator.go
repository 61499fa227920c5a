package alloc

import (
	"fmt"
	"sort"
	"sync"
)

// Block is a byte range in the file.
type Block struct {
	Addr uint64
	Size uint64
}

// End is the first address past the block.
func (b Block) End() uint64 { return b.Addr + b.Size }

// Stats summarises allocator activity for one open file.
type Stats struct {
	Allocations uint64
	BytesAlloc  uint64
	BytesFreed  uint64
	BytesReused uint64
}

// Allocator tracks the end of file and a free list. It is safe for
// concurrent use.
type Allocator struct {
	mu    sync.Mutex
	base  uint64
	eof   uint64
	free  []Block
	stats Stats
}

// New returns an allocator whose end-of-file starts at eof. Addresses below
// eof are never handed out unless freed first.
func New(eof uint64) *Allocator {
	return &Allocator{base: eof, eof: eof}
}

// Alloc reserves size bytes and returns their address.
func (a *Allocator) Alloc(size uint64) uint64 {
	return a.AllocAligned(size, 1)
}

// AllocAligned reserves size bytes starting on a multiple of align.
func (a *Allocator) AllocAligned(size, align uint64) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if align == 0 {
		align = 1
	}
	if size == 0 {
		return a.eof
	}
	a.stats.Allocations++
	a.stats.BytesAlloc += size

	for i, blk := range a.free {
		start := roundUp(blk.Addr, align)
		if start+size > blk.End() {
			continue
		}
		a.stats.BytesReused += size
		var rest []Block
		if start > blk.Addr {
			rest = append(rest, Block{Addr: blk.Addr, Size: start - blk.Addr})
		}
		if start+size < blk.End() {
			rest = append(rest, Block{Addr: start + size, Size: blk.End() - start - size})
		}
		a.free = append(a.free[:i], append(rest, a.free[i+1:]...)...)
		return start
	}

	start := roundUp(a.eof, align)
	a.eof = start + size
	return start
}

// Free returns a block to the allocator. Adjacent free blocks are merged and
// a block touching the end of file shrinks it.
func (a *Allocator) Free(addr, size uint64) {
	if size == 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.BytesFreed += size
	a.free = append(a.free, Block{Addr: addr, Size: size})
	sort.Slice(a.free, func(i, j int) bool { return a.free[i].Addr < a.free[j].Addr })

	merged := a.free[:0]
	for _, blk := range a.free {
		if n := len(merged); n > 0 && merged[n-1].End() >= blk.Addr {
			if blk.End() > merged[n-1].End() {
				merged[n-1].Size = blk.End() - merged[n-1].Addr
			}
			continue
		}
		merged = append(merged, blk)
	}
	a.free = merged

	for n := len(a.free); n > 0 && a.free[n-1].End() >= a.eof; n = len(a.free) {
		a.eof = a.free[n-1].Addr
		a.free = a.free[:n-1]
	}
}

// EOF is the current end-of-file address.
func (a *Allocator) EOF() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eof
}

// FreeBlocks returns a copy of the free list in address order.
func (a *Allocator) FreeBlocks() []Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Block(nil), a.free...)
}

// Stats returns a snapshot of the allocator counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Validate checks that the free list is ordered, disjoint and below EOF.
func (a *Allocator) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, blk := range a.free {
		if blk.End() > a.eof {
			return fmt.Errorf("free block %d [%d,%d) extends past eof %d", i, blk.Addr, blk.End(), a.eof)
		}
		if i > 0 && a.free[i-1].End() > blk.Addr {
			return fmt.Errorf("free blocks %d and %d overlap", i-1, i)
		}
	}
	return nil
}

func roundUp(v, align uint64) uint64 {
	if r := v % align; r != 0 {
		return v + align - r
	}
	return v
}
