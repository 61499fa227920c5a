package btree

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

var (
	signatureTree   = []byte("TREE")
	signatureSymbol = []byte("SNOD")
)

var (
	ErrInvalidNode = errors.New("invalid B-tree node")
	ErrTooDeep     = errors.New("B-tree deeper than supported")
)

const (
	nodeGroup uint8 = 0
	nodeChunk uint8 = 1

	maxDepth = 64
)

// node is the fixed prefix shared by every version 1 B-tree node.
type node struct {
	kind    uint8
	level   uint8
	entries int
}

func readNode(r *binary.Reader, want uint8) (node, error) {
	sig, err := r.Bytes(4)
	if err != nil {
		return node{}, err
	}
	if !bytes.Equal(sig, signatureTree) {
		return node{}, fmt.Errorf("%w: signature %q", ErrInvalidNode, sig)
	}
	var n node
	if n.kind, err = r.Uint8(); err != nil {
		return node{}, err
	}
	if n.kind != want {
		return node{}, fmt.Errorf("%w: type %d, want %d", ErrInvalidNode, n.kind, want)
	}
	if n.level, err = r.Uint8(); err != nil {
		return node{}, err
	}
	used, err := r.Uint16()
	if err != nil {
		return node{}, err
	}
	n.entries = int(used)
	// left and right siblings
	r.Skip(int64(2 * r.OffsetSize()))
	return n, nil
}
