package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

var signatureLocal = []byte("HEAP")

var (
	ErrInvalidHeap = errors.New("invalid local heap")
	ErrOutOfHeap   = errors.New("offset outside local heap")
)

// Local is a decoded local heap. Data holds the whole data segment.
type Local struct {
	Address     uint64
	DataAddress uint64
	FreeOffset  uint64
	Data        []byte
}

// ReadLocal decodes the local heap at addr and loads its data segment.
func ReadLocal(r *binary.Reader, addr uint64) (*Local, error) {
	hr := r.At(int64(addr))
	sig, err := hr.Bytes(4)
	if err != nil {
		return nil, fmt.Errorf("local heap at %d: %w", addr, err)
	}
	if !bytes.Equal(sig, signatureLocal) {
		return nil, fmt.Errorf("%w: signature %q at %d", ErrInvalidHeap, sig, addr)
	}
	version, err := hr.Uint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidHeap, version)
	}
	hr.Skip(3)

	h := &Local{Address: addr}
	size, err := hr.Length()
	if err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.Length(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.Offset(); err != nil {
		return nil, err
	}
	if h.Data, err = r.At(int64(h.DataAddress)).Bytes(int(size)); err != nil {
		return nil, fmt.Errorf("local heap data at %d: %w", h.DataAddress, err)
	}
	return h, nil
}

// String returns the NUL-terminated string starting at off.
func (h *Local) String(off uint64) (string, error) {
	if off >= uint64(len(h.Data)) {
		return "", fmt.Errorf("%w: %d >= %d", ErrOutOfHeap, off, len(h.Data))
	}
	rest := h.Data[off:]
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		rest = rest[:i]
	}
	return string(rest), nil
}
