package btree

import (
	"bytes"
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/heap"
)

// cache type of a symbol table entry whose scratch pad holds a soft link
const cacheSoftLink = 2

// Symbol is one link found in a symbol-table group.
type Symbol struct {
	Name    string
	Address uint64
	// Target is set instead of Address for soft links.
	Target string
}

// Soft reports whether the symbol is a soft link.
func (s Symbol) Soft() bool { return s.Target != "" }

// ReadGroup collects every symbol under the group tree rooted at addr,
// resolving names through the group's local heap.
func ReadGroup(r *binary.Reader, addr uint64, names *heap.Local) ([]Symbol, error) {
	var out []Symbol
	if err := walkGroup(r, addr, names, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkGroup(r *binary.Reader, addr uint64, names *heap.Local, depth int, out *[]Symbol) error {
	if depth > maxDepth {
		return ErrTooDeep
	}
	nr := r.At(int64(addr))
	n, err := readNode(nr, nodeGroup)
	if err != nil {
		return fmt.Errorf("group node at %d: %w", addr, err)
	}
	children := make([]uint64, 0, n.entries)
	for i := 0; i < n.entries; i++ {
		if _, err := nr.Length(); err != nil {
			return err
		}
		child, err := nr.Offset()
		if err != nil {
			return err
		}
		children = append(children, child)
	}
	for _, child := range children {
		if n.level > 0 {
			err = walkGroup(r, child, names, depth+1, out)
		} else {
			err = readSymbolNode(r, child, names, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readSymbolNode(r *binary.Reader, addr uint64, names *heap.Local, out *[]Symbol) error {
	sr := r.At(int64(addr))
	sig, err := sr.Bytes(4)
	if err != nil {
		return err
	}
	if !bytes.Equal(sig, signatureSymbol) {
		return fmt.Errorf("%w: symbol node signature %q at %d", ErrInvalidNode, sig, addr)
	}
	sr.Skip(2) // version, reserved
	count, err := sr.Uint16()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		nameOff, err := sr.Offset()
		if err != nil {
			return err
		}
		objAddr, err := sr.Offset()
		if err != nil {
			return err
		}
		cache, err := sr.Uint32()
		if err != nil {
			return err
		}
		sr.Skip(4)
		scratch, err := sr.Bytes(16)
		if err != nil {
			return err
		}
		name, err := names.String(nameOff)
		if err != nil {
			return fmt.Errorf("symbol %d at %d: %w", i, addr, err)
		}
		sym := Symbol{Name: name, Address: objAddr}
		if cache == cacheSoftLink {
			target, err := names.String(uint64(sr.Order().Uint32(scratch)))
			if err != nil {
				return fmt.Errorf("soft link %q: %w", name, err)
			}
			sym.Target = target
		}
		*out = append(*out, sym)
	}
	return nil
}
