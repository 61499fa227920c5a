package superblock

import (
	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// New returns a version 3 superblock with 8-byte offsets and lengths.
func New() *Superblock {
	return &Superblock{Version: 3, OffsetSize: 8, LengthSize: 8}
}

// Size is the encoded length of a v2/v3 superblock.
func (sb *Superblock) Size() int {
	os := int(sb.OffsetSize)
	if os == 0 {
		os = 8
	}
	return 12 + 4*os + 4
}

// Encode serialises sb as a v2/v3 superblock. Versions below 2 are
// upgraded to 3 since the v0/v1 root entry cannot express a v2 header.
func (sb *Superblock) Encode() []byte {
	version := sb.Version
	if version < 2 {
		version = 3
	}
	e := binpkg.NewEncoder(sb.Sizes(), sb.Size())
	e.Put(Signature)
	e.Uint8(version)
	e.Uint8(sb.OffsetSize)
	e.Uint8(sb.LengthSize)
	e.Uint8(sb.Flags)
	e.Offset(sb.BaseAddress)
	e.UndefinedOffset() // no superblock extension
	e.Offset(sb.EOFAddress)
	e.Offset(sb.RootAddress)
	e.Checksum()
	return e.Bytes()
}
