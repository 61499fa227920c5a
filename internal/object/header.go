package object

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

var (
	signatureHeader       = []byte("OHDR")
	signatureContinuation = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksum           = errors.New("object header checksum mismatch")
)

// maxContinuations bounds how many continuation blocks one header may chain.
const maxContinuations = 1024

// Header is a decoded object header.
type Header struct {
	Version  uint8
	Address  uint64
	Messages []message.Message

	// Span is the on-disk size of the first chunk including prefix and
	// checksum. It is what a rewrite may reuse in place.
	Span int

	// Continuations lists the extra blocks the header spans.
	Continuations []*message.Continuation
}

// Read decodes the header at addr.
func Read(r *binary.Reader, addr uint64) (*Header, error) {
	hr := r.At(int64(addr))
	peek, err := hr.Peek(4)
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	h := &Header{Address: addr}
	switch {
	case bytes.Equal(peek, signatureHeader):
		h.Version = 2
		err = readV2(hr, h)
	case peek[0] == 1:
		h.Version = 1
		err = readV1(hr, h)
	default:
		return nil, fmt.Errorf("%w at %d", ErrInvalidHeader, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("object header at %d: %w", addr, err)
	}
	return h, nil
}

// Find returns the first message of the given type, or nil.
func (h *Header) Find(typ message.Type) message.Message {
	for _, m := range h.Messages {
		if m.Type() == typ {
			return m
		}
	}
	return nil
}

// FindAll returns every message of the given type in header order.
func (h *Header) FindAll(typ message.Type) []message.Message {
	var out []message.Message
	for _, m := range h.Messages {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}

func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Find(message.TypeDataspace).(*message.Dataspace)
	return m
}

func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Find(message.TypeDatatype).(*message.Datatype)
	return m
}

func (h *Header) Layout() *message.DataLayout {
	m, _ := h.Find(message.TypeDataLayout).(*message.DataLayout)
	return m
}

func (h *Header) Filters() *message.FilterPipeline {
	m, _ := h.Find(message.TypeFilterPipeline).(*message.FilterPipeline)
	return m
}

// Links returns the link messages of a new-style group.
func (h *Header) Links() []*message.Link {
	var out []*message.Link
	for _, m := range h.Messages {
		if l, ok := m.(*message.Link); ok {
			out = append(out, l)
		}
	}
	return out
}

// IsDataset reports whether the header describes a dataset.
func (h *Header) IsDataset() bool {
	return h.Dataspace() != nil && h.Layout() != nil
}

// blockReader walks messages in one chunk of a header.
type blockReader struct {
	r       *binary.Reader
	h       *Header
	pending []*message.Continuation
}

func (b *blockReader) add(typ message.Type, data []byte) error {
	if typ == message.TypeNIL {
		return nil
	}
	msg, err := message.Parse(typ, data, b.r.Sizes())
	if err != nil {
		return err
	}
	if c, ok := msg.(*message.Continuation); ok {
		b.pending = append(b.pending, c)
		b.h.Continuations = append(b.h.Continuations, c)
		return nil
	}
	b.h.Messages = append(b.h.Messages, msg)
	return nil
}

// Version 1 prefix: version(1) reserved(1) count(2) refcount(4) size(4)
// reserved(4). Messages: type(2) size(2) flags(1) reserved(3) body, with
// bodies padded to 8 bytes.
func readV1(r *binary.Reader, h *Header) error {
	r.Skip(2)
	if _, err := r.Uint16(); err != nil {
		return err
	}
	r.Skip(4)
	size, err := r.Uint32()
	if err != nil {
		return err
	}
	r.Skip(4)
	h.Span = 16 + int(size)

	b := &blockReader{r: r, h: h}
	if err := b.v1Block(r.Pos(), uint64(size)); err != nil {
		return err
	}
	for hops := 0; len(b.pending) > 0; hops++ {
		if hops > maxContinuations {
			return fmt.Errorf("%w: too many continuation blocks", ErrInvalidHeader)
		}
		c := b.pending[0]
		b.pending = b.pending[1:]
		if err := b.v1Block(int64(c.Offset), c.Length); err != nil {
			return err
		}
	}
	return nil
}

func (b *blockReader) v1Block(start int64, length uint64) error {
	r := b.r.At(start)
	end := start + int64(length)
	for r.Pos()+8 <= end {
		typ, err := r.Uint16()
		if err != nil {
			return err
		}
		size, err := r.Uint16()
		if err != nil {
			return err
		}
		r.Skip(4)
		data, err := r.Bytes(int(size))
		if err != nil {
			return err
		}
		if pad := (r.Pos() - start) % 8; pad != 0 {
			r.Skip(8 - pad)
		}
		if err := b.add(message.Type(typ), data); err != nil {
			return err
		}
	}
	return nil
}

// Version 2 prefix: "OHDR" version(1) flags(1) [times 16] [attr phase 4]
// chunk0 size (1<<(flags&3) bytes). Messages: type(1) size(2) flags(1)
// [creation order 2] body. Each chunk ends with a lookup3 checksum.
func readV2(r *binary.Reader, h *Header) error {
	start := r.Pos()
	r.Skip(4)
	version, err := r.Uint8()
	if err != nil {
		return err
	}
	if version != 2 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	flags, err := r.Uint8()
	if err != nil {
		return err
	}
	if flags&0x20 != 0 {
		r.Skip(16)
	}
	if flags&0x10 != 0 {
		r.Skip(4)
	}
	size, err := r.Uint(1 << (flags & 0x03))
	if err != nil {
		return err
	}
	msgStart := r.Pos()
	prefix := int(msgStart - start)
	h.Span = prefix + int(size) + 4

	raw, err := r.At(start).Bytes(h.Span)
	if err != nil {
		return err
	}
	if !checksumOK(raw) {
		return ErrChecksum
	}

	b := &blockReader{r: r, h: h}
	ordered := flags&0x04 != 0
	if err := b.v2Block(msgStart, msgStart+int64(size), ordered); err != nil {
		return err
	}
	for hops := 0; len(b.pending) > 0; hops++ {
		if hops > maxContinuations {
			return fmt.Errorf("%w: too many continuation blocks", ErrInvalidHeader)
		}
		c := b.pending[0]
		b.pending = b.pending[1:]

		block, err := r.At(int64(c.Offset)).Bytes(int(c.Length))
		if err != nil {
			return err
		}
		if !bytes.Equal(block[:4], signatureContinuation) {
			return fmt.Errorf("%w: bad continuation signature at %d", ErrInvalidHeader, c.Offset)
		}
		if !checksumOK(block) {
			return ErrChecksum
		}
		from := int64(c.Offset) + 4
		if err := b.v2Block(from, int64(c.Offset+c.Length)-4, ordered); err != nil {
			return err
		}
	}
	return nil
}

func (b *blockReader) v2Block(start, end int64, ordered bool) error {
	hdr := int64(4)
	if ordered {
		hdr += 2
	}
	r := b.r.At(start)
	for r.Pos()+hdr <= end {
		typ, err := r.Uint8()
		if err != nil {
			return err
		}
		size, err := r.Uint16()
		if err != nil {
			return err
		}
		r.Skip(hdr - 3)
		if r.Pos()+int64(size) > end {
			return fmt.Errorf("%w: message overruns chunk", ErrInvalidHeader)
		}
		data, err := r.Bytes(int(size))
		if err != nil {
			return err
		}
		if err := b.add(message.Type(typ), data); err != nil {
			return err
		}
	}
	return nil
}

func checksumOK(block []byte) bool {
	n := len(block) - 4
	if n < 0 {
		return false
	}
	stored := uint32(block[n]) | uint32(block[n+1])<<8 | uint32(block[n+2])<<16 | uint32(block[n+3])<<24
	return stored == binary.Lookup3(block[:n])
}
