package heap

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

func buildLocal(t *testing.T, data []byte) []byte {
	t.Helper()
	e := binary.NewEncoder(binary.DefaultSizes(), 64)
	e.Put([]byte("HEAP"))
	e.Uint8(0)
	e.Zeros(3)
	e.Length(uint64(len(data)))
	e.Length(binary.Undefined(8))
	e.Offset(32)
	e.Put(data)
	return e.Bytes()
}

func TestReadLocal(t *testing.T) {
	data := []byte("\x00entry\x00\x00\x00arr\x00\x00\x00\x00\x00")
	raw := buildLocal(t, data)
	h, err := ReadLocal(binary.NewReader(bytes.NewReader(raw), binary.DefaultSizes()), 0)
	if err != nil {
		t.Fatalf("ReadLocal: %v", err)
	}
	tests := []struct {
		off  uint64
		want string
	}{
		{0, ""},
		{1, "entry"},
		{9, "arr"},
	}
	for _, tt := range tests {
		got, err := h.String(tt.off)
		if err != nil {
			t.Fatalf("String(%d): %v", tt.off, err)
		}
		if got != tt.want {
			t.Errorf("String(%d) = %q, want %q", tt.off, got, tt.want)
		}
	}
	if _, err := h.String(uint64(len(data))); !errors.Is(err, ErrOutOfHeap) {
		t.Errorf("String past end: err = %v, want ErrOutOfHeap", err)
	}
}

func TestReadLocalBadSignature(t *testing.T) {
	raw := buildLocal(t, []byte("x\x00"))
	copy(raw, "PEAH")
	_, err := ReadLocal(binary.NewReader(bytes.NewReader(raw), binary.DefaultSizes()), 0)
	if !errors.Is(err, ErrInvalidHeap) {
		t.Fatalf("err = %v, want ErrInvalidHeap", err)
	}
}
