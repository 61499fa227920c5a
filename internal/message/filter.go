package message

import (
	"encoding/binary"
)

// Well-known filter identifiers.
const (
	FilterDeflate     uint16 = 1
	FilterShuffle     uint16 = 2
	FilterFletcher32  uint16 = 3
	FilterSZIP        uint16 = 4
	FilterNBit        uint16 = 5
	FilterScaleOffset uint16 = 6
)

// Filter is one stage of a filter pipeline.
type Filter struct {
	ID         uint16
	Flags      uint16
	Name       string
	ClientData []uint32
}

// Optional reports whether a failure of this filter may be ignored.
func (f Filter) Optional() bool { return f.Flags&0x01 != 0 }

// FilterPipeline lists the filters applied to each chunk, in write order.
type FilterPipeline struct {
	Filters []Filter
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte) (*FilterPipeline, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	version, n := data[0], int(data[1])
	if version != 1 && version != 2 {
		return nil, versionError("filter pipeline", version)
	}
	pos := 2
	if version == 1 {
		pos = 8
	}

	le := binary.LittleEndian
	fp := &FilterPipeline{Filters: make([]Filter, 0, n)}
	for i := 0; i < n; i++ {
		if pos+2 > len(data) {
			return nil, ErrTruncated
		}
		var f Filter
		f.ID = le.Uint16(data[pos:])
		pos += 2

		nameLen := 0
		if version == 1 || f.ID >= 256 {
			if pos+2 > len(data) {
				return nil, ErrTruncated
			}
			nameLen = int(le.Uint16(data[pos:]))
			pos += 2
		}
		if pos+4 > len(data) {
			return nil, ErrTruncated
		}
		f.Flags = le.Uint16(data[pos:])
		numValues := int(le.Uint16(data[pos+2:]))
		pos += 4

		if nameLen > 0 {
			if version == 1 && nameLen%8 != 0 {
				nameLen += 8 - nameLen%8
			}
			if pos+nameLen > len(data) {
				return nil, ErrTruncated
			}
			f.Name = cstring(data[pos : pos+nameLen])
			pos += nameLen
		}

		if pos+4*numValues > len(data) {
			return nil, ErrTruncated
		}
		f.ClientData = make([]uint32, numValues)
		for j := range f.ClientData {
			f.ClientData[j] = le.Uint32(data[pos:])
			pos += 4
		}
		if version == 1 && numValues%2 != 0 {
			pos += 4
		}
		fp.Filters = append(fp.Filters, f)
	}
	return fp, nil
}
