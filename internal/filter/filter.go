package filter

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	binpkg "github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

var (
	ErrUnsupported = errors.New("unsupported filter")
	ErrChecksum    = errors.New("fletcher32 checksum mismatch")
)

// decodeFunc reverses one filter stage.
type decodeFunc func(in []byte) ([]byte, error)

var names = map[uint16]string{
	message.FilterDeflate:     "deflate",
	message.FilterShuffle:     "shuffle",
	message.FilterFletcher32:  "fletcher32",
	message.FilterSZIP:        "szip",
	message.FilterNBit:        "nbit",
	message.FilterScaleOffset: "scaleoffset",
}

func stage(f message.Filter, elemSize int) (decodeFunc, error) {
	switch f.ID {
	case message.FilterDeflate:
		return inflate, nil
	case message.FilterShuffle:
		size := elemSize
		if len(f.ClientData) > 0 {
			size = int(f.ClientData[0])
		}
		return func(in []byte) ([]byte, error) { return Unshuffle(in, size), nil }, nil
	case message.FilterFletcher32:
		return verifyFletcher32, nil
	}
	name := names[f.ID]
	if name == "" {
		name = f.Name
	}
	return nil, fmt.Errorf("%w: %s (id %d)", ErrUnsupported, name, f.ID)
}

func inflate(in []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, nil
}

// Unshuffle regroups byte planes back into elements of the given size.
func Unshuffle(in []byte, size int) []byte {
	if size <= 1 || len(in) < size {
		return in
	}
	n := len(in) / size
	out := make([]byte, len(in))
	for b := 0; b < size; b++ {
		plane := in[b*n : (b+1)*n]
		for i, v := range plane {
			out[i*size+b] = v
		}
	}
	// trailing bytes that do not fill an element are stored as-is
	copy(out[n*size:], in[n*size:])
	return out
}

// Shuffle is the inverse of Unshuffle.
func Shuffle(in []byte, size int) []byte {
	if size <= 1 || len(in) < size {
		return in
	}
	n := len(in) / size
	out := make([]byte, len(in))
	for i := 0; i < n; i++ {
		for b := 0; b < size; b++ {
			out[b*n+i] = in[i*size+b]
		}
	}
	copy(out[n*size:], in[n*size:])
	return out
}

func verifyFletcher32(in []byte) ([]byte, error) {
	if len(in) < 4 {
		return nil, fmt.Errorf("%w: chunk shorter than checksum", ErrChecksum)
	}
	data, tail := in[:len(in)-4], in[len(in)-4:]
	stored := binary.LittleEndian.Uint32(tail)
	sum := binpkg.Fletcher32(data)
	// older writers stored the halves byte-swapped
	swapped := binary.LittleEndian.Uint32([]byte{tail[1], tail[0], tail[3], tail[2]})
	if stored != sum && swapped != sum {
		return nil, fmt.Errorf("%w: stored %#08x, computed %#08x", ErrChecksum, stored, sum)
	}
	return data, nil
}

// AppendFletcher32 appends the checksum the way the fletcher32 filter
// stores it.
func AppendFletcher32(data []byte) []byte {
	return binary.LittleEndian.AppendUint32(data, binpkg.Fletcher32(data))
}
