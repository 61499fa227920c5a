package dtype

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32s lays out values as little-endian float32.
func EncodeFloat32s(values []float32) []byte {
	out := make([]byte, 0, 4*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// EncodeFloat64s lays out values as little-endian float64.
func EncodeFloat64s(values []float64) []byte {
	out := make([]byte, 0, 8*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

// EncodeInt64s lays out values as little-endian int64.
func EncodeInt64s(values []int64) []byte {
	out := make([]byte, 0, 8*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, uint64(v))
	}
	return out
}

// StringSize is the fixed width needed to hold every value.
func StringSize(values []string) uint32 {
	n := 1
	for _, v := range values {
		n = max(n, len(v))
	}
	return uint32(n)
}

// EncodeStrings null-pads each value to size bytes, truncating longer ones.
func EncodeStrings(values []string, size uint32) []byte {
	out := make([]byte, int(size)*len(values))
	for i, v := range values {
		copy(out[i*int(size):(i+1)*int(size)], v)
	}
	return out
}
