package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// Signature opens every superblock.
var Signature = []byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'}

// searchOffsets are the positions probed for a signature. Files with a user
// block carry the superblock at a later power-of-two offset.
var searchOffsets = []int64{0, 512, 1024, 2048}

var (
	ErrNotHDF5            = errors.New("not an HDF5 file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrChecksum           = errors.New("superblock checksum mismatch")
)

// Superblock holds the fields of any superblock version that the rest of
// the engine needs.
type Superblock struct {
	Version     uint8
	OffsetSize  uint8
	LengthSize  uint8
	Flags       uint8
	BaseAddress uint64
	EOFAddress  uint64

	// RootAddress is the root group's object header.
	RootAddress uint64

	// RootBTree and RootHeap come from the v0/v1 root entry scratch pad and
	// are zero when the entry does not cache them.
	RootBTree uint64
	RootHeap  uint64

	// Offset is where the signature was found.
	Offset int64
}

// Sizes returns the field widths declared by the superblock.
func (sb *Superblock) Sizes() binpkg.Sizes {
	return binpkg.Sizes{
		Order:      binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Writable reports whether this module can rewrite the superblock in place.
func (sb *Superblock) Writable() bool {
	return sb.Version >= 2
}

// Read finds and decodes the superblock of r.
func Read(r io.ReaderAt) (*Superblock, error) {
	sig := make([]byte, len(Signature)+1)
	for _, off := range searchOffsets {
		if _, err := r.ReadAt(sig, off); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		if !bytes.Equal(sig[:len(Signature)], Signature) {
			continue
		}

		var (
			sb  *Superblock
			err error
		)
		switch v := sig[len(Signature)]; v {
		case 0, 1:
			sb, err = readV0V1(r, off, v)
		case 2, 3:
			sb, err = readV2V3(r, off)
		default:
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
		}
		if err != nil {
			return nil, err
		}
		sb.Offset = off
		return sb, nil
	}
	return nil, ErrNotHDF5
}

// Layout (v0): signature(8) version(1) freespace(1) rootsym(1) reserved(1)
// shared(1) offsetSize(1) lengthSize(1) reserved(1) leafK(2) internalK(2)
// flags(4) [v1: istoreK(2) reserved(2)] base free eof driver rootEntry.
func readV0V1(r io.ReaderAt, off int64, version uint8) (*Superblock, error) {
	head := make([]byte, 24)
	if _, err := r.ReadAt(head, off); err != nil {
		return nil, fmt.Errorf("superblock v%d header: %w", version, err)
	}
	sb := &Superblock{
		Version:    version,
		OffsetSize: head[13],
		LengthSize: head[14],
		Flags:      head[20],
	}
	if err := sb.Sizes().Validate(); err != nil {
		return nil, err
	}

	pos := off + 24
	if version == 1 {
		pos += 4
	}
	br := binpkg.NewReader(r, sb.Sizes()).At(pos)

	var err error
	if sb.BaseAddress, err = br.Offset(); err != nil {
		return nil, err
	}
	br.Skip(int64(br.OffsetSize())) // free-space info
	if sb.EOFAddress, err = br.Offset(); err != nil {
		return nil, err
	}
	br.Skip(int64(br.OffsetSize())) // driver info

	// Root group symbol table entry.
	br.Skip(int64(br.OffsetSize())) // link name offset
	if sb.RootAddress, err = br.Offset(); err != nil {
		return nil, err
	}
	cacheType, err := br.Uint32()
	if err != nil {
		return nil, err
	}
	br.Skip(4)
	if cacheType == 1 {
		if sb.RootBTree, err = br.Offset(); err != nil {
			return nil, err
		}
		if sb.RootHeap, err = br.Offset(); err != nil {
			return nil, err
		}
	}
	return sb, nil
}

func readV2V3(r io.ReaderAt, off int64) (*Superblock, error) {
	head := make([]byte, 12)
	if _, err := r.ReadAt(head, off); err != nil {
		return nil, fmt.Errorf("superblock header: %w", err)
	}
	sb := &Superblock{
		Version:    head[8],
		OffsetSize: head[9],
		LengthSize: head[10],
		Flags:      head[11],
	}
	if err := sb.Sizes().Validate(); err != nil {
		return nil, err
	}

	body := make([]byte, 12+4*int(sb.OffsetSize)+4)
	if _, err := r.ReadAt(body, off); err != nil {
		return nil, fmt.Errorf("superblock body: %w", err)
	}
	n := len(body) - 4
	if binary.LittleEndian.Uint32(body[n:]) != binpkg.Lookup3(body[:n]) {
		return nil, ErrChecksum
	}

	os := int(sb.OffsetSize)
	field := func(i int) uint64 {
		return binpkg.DecodeUint(body[12+i*os:], os, binary.LittleEndian)
	}
	sb.BaseAddress = field(0)
	sb.EOFAddress = field(2)
	sb.RootAddress = field(3)
	return sb, nil
}
