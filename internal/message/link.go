package message

import (
	"fmt"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// LinkKind is the target kind of a link.
type LinkKind uint8

const (
	LinkHard     LinkKind = 0
	LinkSoft     LinkKind = 1
	LinkExternal LinkKind = 64
)

// Link names a child of a group stored in compact form.
type Link struct {
	Kind    LinkKind
	Name    string
	Address uint64
	Target  string
}

func (m *Link) Type() Type { return TypeLink }

func parseLink(data []byte, sizes binpkg.Sizes) (*Link, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	if data[0] != 1 {
		return nil, versionError("link", data[0])
	}
	flags := data[1]
	r := bodyReader(data, sizes)
	r.Skip(2)

	l := &Link{}
	if flags&0x08 != 0 {
		k, err := r.Uint8()
		if err != nil {
			return nil, ErrTruncated
		}
		l.Kind = LinkKind(k)
	}
	if flags&0x04 != 0 {
		r.Skip(8) // creation order
	}
	if flags&0x10 != 0 {
		r.Skip(1) // charset
	}
	nameLen, err := r.Uint(1 << (flags & 0x03))
	if err != nil {
		return nil, ErrTruncated
	}
	name, err := r.Bytes(int(nameLen))
	if err != nil {
		return nil, ErrTruncated
	}
	l.Name = string(name)

	switch l.Kind {
	case LinkHard:
		if l.Address, err = r.Offset(); err != nil {
			return nil, ErrTruncated
		}
	case LinkSoft:
		n, err := r.Uint16()
		if err != nil {
			return nil, ErrTruncated
		}
		target, err := r.Bytes(int(n))
		if err != nil {
			return nil, ErrTruncated
		}
		l.Target = string(target)
	case LinkExternal:
		n, err := r.Uint16()
		if err != nil {
			return nil, ErrTruncated
		}
		body, err := r.Bytes(int(n))
		if err != nil || len(body) < 1 {
			return nil, ErrTruncated
		}
		l.Target = cstring(body[1:])
	default:
		return nil, fmt.Errorf("link %q: unknown link type %d", l.Name, l.Kind)
	}
	return l, nil
}

// Encode writes a version 1 link message.
func (m *Link) Encode(e *binpkg.Encoder) {
	width := nameWidth(len(m.Name))
	flags := uint8(0)
	switch width {
	case 2:
		flags = 1
	case 4:
		flags = 2
	}
	if m.Kind != LinkHard {
		flags |= 0x08
	}
	e.Uint8(1)
	e.Uint8(flags)
	if m.Kind != LinkHard {
		e.Uint8(uint8(m.Kind))
	}
	e.Uint(uint64(len(m.Name)), width)
	e.Put([]byte(m.Name))
	switch m.Kind {
	case LinkHard:
		e.Offset(m.Address)
	case LinkSoft:
		e.Uint16(uint16(len(m.Target)))
		e.Put([]byte(m.Target))
	}
}

func (m *Link) EncodedSize(s binpkg.Sizes) int {
	n := 2 + nameWidth(len(m.Name)) + len(m.Name)
	switch m.Kind {
	case LinkHard:
		n += s.OffsetSize
	case LinkSoft:
		n += 1 + 2 + len(m.Target)
	}
	return n
}

func nameWidth(n int) int {
	switch {
	case n <= 0xff:
		return 1
	case n <= 0xffff:
		return 2
	}
	return 4
}

// NewHardLink links name to the object header at addr.
func NewHardLink(name string, addr uint64) *Link {
	return &Link{Kind: LinkHard, Name: name, Address: addr}
}

// NewSoftLink links name to an absolute or relative path.
func NewSoftLink(name, target string) *Link {
	return &Link{Kind: LinkSoft, Name: name, Target: target}
}
