package message

import (
	"bytes"
	"errors"
	"fmt"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
)

// Type identifies a header message.
type Type uint16

const (
	TypeNIL            Type = 0x00
	TypeDataspace      Type = 0x01
	TypeLinkInfo       Type = 0x02
	TypeDatatype       Type = 0x03
	TypeFillValueOld   Type = 0x04
	TypeFillValue      Type = 0x05
	TypeLink           Type = 0x06
	TypeDataLayout     Type = 0x08
	TypeGroupInfo      Type = 0x0A
	TypeFilterPipeline Type = 0x0B
	TypeAttribute      Type = 0x0C
	TypeContinuation   Type = 0x10
	TypeSymbolTable    Type = 0x11
	TypeModTime        Type = 0x12
)

// ErrTruncated is returned when a message body ends early.
var ErrTruncated = errors.New("message truncated")

// Message is any decoded header message.
type Message interface {
	Type() Type
}

// Encodable is a message the engine can write into a v2 object header.
type Encodable interface {
	Message
	Encode(e *binpkg.Encoder)
	EncodedSize(s binpkg.Sizes) int
}

// Parse decodes one message body.
func Parse(typ Type, data []byte, sizes binpkg.Sizes) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(data, sizes)
	case TypeDatatype:
		msg, err = parseDatatype(data)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, sizes)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(data)
	case TypeLink:
		msg, err = parseLink(data, sizes)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(data, sizes)
	case TypeSymbolTable:
		msg, err = parseSymbolTable(data, sizes)
	case TypeContinuation:
		msg, err = parseContinuation(data, sizes)
	default:
		return &Unknown{Kind: typ, Data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message type %#x: %w", uint16(typ), err)
	}
	return msg, nil
}

// Unknown preserves the body of a message this package does not decode.
type Unknown struct {
	Kind Type
	Data []byte
}

func (m *Unknown) Type() Type { return m.Kind }

// Continuation points at a further block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeContinuation }

func parseContinuation(data []byte, sizes binpkg.Sizes) (*Continuation, error) {
	r := bodyReader(data, sizes)
	off, err := r.Offset()
	if err != nil {
		return nil, ErrTruncated
	}
	n, err := r.Length()
	if err != nil {
		return nil, ErrTruncated
	}
	return &Continuation{Offset: off, Length: n}, nil
}

// bodyReader returns a positioned reader over a message body.
func bodyReader(data []byte, sizes binpkg.Sizes) *binpkg.Reader {
	return binpkg.NewReader(bytes.NewReader(data), sizes)
}

// cstring returns the bytes of b up to the first NUL.
func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
