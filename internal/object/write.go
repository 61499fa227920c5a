package object

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// GroupSlack is the minimum chunk size given to group headers so a handful
// of links can be added without relocating the header.
const GroupSlack = 256

// Encode builds a single-chunk v2 header. The message area is at least
// minChunk bytes; unused space becomes a NIL message or a trailing gap.
func Encode(sizes binary.Sizes, msgs []message.Encodable, minChunk int) []byte {
	need := 0
	for _, m := range msgs {
		need += 4 + m.EncodedSize(sizes)
	}
	chunk := need
	if chunk < minChunk {
		chunk = minChunk
	}
	width := chunkWidth(chunk)

	e := binary.NewEncoder(sizes, 6+width+chunk+4)
	e.Put(signatureHeader)
	e.Uint8(2)
	e.Uint8(widthFlag(width))
	e.Uint(uint64(chunk), width)
	for _, m := range msgs {
		e.Uint8(uint8(m.Type()))
		e.Uint16(uint16(m.EncodedSize(sizes)))
		e.Uint8(0)
		m.Encode(e)
	}
	if gap := chunk - need; gap >= 4 {
		e.Uint8(uint8(message.TypeNIL))
		e.Uint16(uint16(gap - 4))
		e.Uint8(0)
		e.Zeros(gap - 4)
	} else {
		e.Zeros(gap)
	}
	e.Checksum()
	return e.Bytes()
}

// EncodeInto builds a header that occupies exactly span bytes, so it can
// overwrite an existing header in place. It fails if the messages do not
// fit.
func EncodeInto(sizes binary.Sizes, msgs []message.Encodable, span int) ([]byte, error) {
	for width := 1; width <= 8; width *= 2 {
		chunk := span - 6 - width - 4
		if chunk <= 0 || chunkWidth(chunk) != width {
			continue
		}
		buf := Encode(sizes, msgs, chunk)
		if len(buf) == span {
			return buf, nil
		}
	}
	return nil, fmt.Errorf("header of %d messages does not fit in %d bytes", len(msgs), span)
}

func chunkWidth(n int) int {
	switch {
	case n <= 0xff:
		return 1
	case n <= 0xffff:
		return 2
	case n <= 0xffffffff:
		return 4
	}
	return 8
}

func widthFlag(width int) uint8 {
	switch width {
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	}
	return 0
}

// GroupMessages returns the messages of a compact new-style group.
func GroupMessages(links []*message.Link) []message.Encodable {
	msgs := []message.Encodable{&message.LinkInfo{}, &message.GroupInfo{}}
	for _, l := range links {
		msgs = append(msgs, l)
	}
	return msgs
}

// DatasetMessages returns the messages of a dataset header.
func DatasetMessages(ds *message.Dataspace, dt *message.Datatype, layout *message.DataLayout) []message.Encodable {
	return []message.Encodable{ds, dt, &message.FillValue{}, layout}
}
