package hdf5

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// v1Header encodes a version 1 object header holding msgs.
func v1Header(msgs ...message.Encodable) []byte {
	sizes := binpkg.DefaultSizes()
	body := binpkg.NewEncoder(sizes, 128)
	for _, m := range msgs {
		n := m.EncodedSize(sizes)
		body.Uint16(uint16(m.Type()))
		body.Uint16(uint16((n + 7) / 8 * 8))
		body.Zeros(4)
		m.Encode(body)
		body.Zeros((8 - n%8) % 8)
	}
	e := binpkg.NewEncoder(sizes, 16+body.Len())
	e.Uint8(1)
	e.Uint8(0)
	e.Uint16(uint16(len(msgs)))
	e.Uint32(1)
	e.Uint32(uint32(body.Len()))
	e.Zeros(4)
	e.Put(body.Bytes())
	return e.Bytes()
}

// symbolTableMsg is a SymbolTable message body for v1Header.
type symbolTableMsg struct{ btree, heap uint64 }

func (m symbolTableMsg) Type() message.Type { return message.TypeSymbolTable }
func (m symbolTableMsg) Encode(e *binpkg.Encoder) {
	e.Offset(m.btree)
	e.Offset(m.heap)
}
func (m symbolTableMsg) EncodedSize(s binpkg.Sizes) int { return 2 * s.OffsetSize }

// writeLegacyFile builds the kind of file older writers produce: a version
// 0 superblock and a symbol-table root group holding a 2x3 uint16 dataset
// "frames" with values 0..5, plus a soft link "alias" pointing at it.
func writeLegacyFile(t *testing.T) string {
	t.Helper()
	const (
		rootAddr  = 96
		btreeAddr = 136
		heapAddr  = 184
		heapData  = 216
		snodAddr  = 232
		dataHdr   = 320
	)
	sizes := binpkg.DefaultSizes()
	e := binpkg.NewEncoder(sizes, 512)

	// superblock v0
	e.Put([]byte("\x89HDF\r\n\x1a\n"))
	e.Put([]byte{0, 0, 0, 0, 0, 8, 8, 0})
	e.Uint16(4)
	e.Uint16(16)
	e.Uint32(0)
	e.Offset(0)
	e.UndefinedOffset()
	eofAt := e.Len()
	e.Offset(0) // patched below
	e.UndefinedOffset()
	e.Offset(0)
	e.Offset(rootAddr)
	e.Uint32(1)
	e.Zeros(4)
	e.Offset(btreeAddr)
	e.Offset(heapAddr)

	pad := func(to int) {
		if e.Len() > to {
			t.Fatalf("fixture overlaps at %d (len %d)", to, e.Len())
		}
		e.Zeros(to - e.Len())
	}

	pad(rootAddr)
	e.Put(v1Header(symbolTableMsg{btreeAddr, heapAddr}))

	pad(btreeAddr)
	e.Put([]byte("TREE"))
	e.Uint8(0)
	e.Uint8(0)
	e.Uint16(1)
	e.UndefinedOffset()
	e.UndefinedOffset()
	e.Length(0)
	e.Offset(snodAddr)
	e.Length(8)

	pad(heapAddr)
	e.Put([]byte("HEAP"))
	e.Uint8(0)
	e.Zeros(3)
	e.Length(16)
	e.Length(binpkg.Undefined(8))
	e.Offset(heapData)
	e.Put([]byte("\x00frames\x00alias\x00\x00\x00"))
	// "frames" at 1, "alias" at 8; the soft link target reuses "frames"

	pad(snodAddr)
	e.Put([]byte("SNOD"))
	e.Uint8(1)
	e.Uint8(0)
	e.Uint16(2)
	e.Offset(8)
	e.UndefinedOffset()
	e.Uint32(2)
	e.Zeros(4)
	e.Uint32(1)
	e.Zeros(12)
	e.Offset(1)
	e.Offset(dataHdr)
	e.Uint32(0)
	e.Zeros(4)
	e.Zeros(16)

	pad(dataHdr)
	hdr := v1Header(
		message.NewDataspace(2, 3),
		message.NewInt(2, false),
		message.NewContiguous(uint64(dataHdr+152), 12),
	)
	if len(hdr) > 152 {
		t.Fatalf("dataset header is %d bytes", len(hdr))
	}
	e.Put(hdr)
	pad(dataHdr + 152)
	for i := uint16(0); i < 6; i++ {
		e.Uint16(i)
	}

	buf := e.Bytes()
	binary.LittleEndian.PutUint64(buf[eofAt:], uint64(len(buf)))
	path := filepath.Join(t.TempDir(), "legacy.h5")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
