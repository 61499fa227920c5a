package dtype

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// ErrConvert is returned when a datatype cannot produce the requested Go type.
var ErrConvert = errors.New("datatype conversion")

func numeric(dt *message.Datatype, data []byte) (int, error) {
	if !dt.IsNumeric() {
		return 0, fmt.Errorf("%w: %s is not numeric", ErrConvert, dt)
	}
	switch {
	case dt.Class == message.ClassFloatPoint && dt.Size != 4 && dt.Size != 8:
		return 0, fmt.Errorf("%w: %d-byte float", ErrConvert, dt.Size)
	case dt.Size != 1 && dt.Size != 2 && dt.Size != 4 && dt.Size != 8:
		return 0, fmt.Errorf("%w: %d-byte integer", ErrConvert, dt.Size)
	}
	if len(data)%int(dt.Size) != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a whole number of %d-byte elements", ErrConvert, len(data), dt.Size)
	}
	return len(data) / int(dt.Size), nil
}

// value decodes element i as float64 and, for integers, as int64.
func value(dt *message.Datatype, data []byte, i int) (float64, int64) {
	order := dt.Order()
	b := data[i*int(dt.Size):]
	if dt.Class == message.ClassFloatPoint {
		var f float64
		if dt.Size == 4 {
			f = float64(math.Float32frombits(order.Uint32(b)))
		} else {
			f = math.Float64frombits(order.Uint64(b))
		}
		return f, int64(f)
	}
	var u uint64
	switch dt.Size {
	case 1:
		u = uint64(b[0])
	case 2:
		u = uint64(order.Uint16(b))
	case 4:
		u = uint64(order.Uint32(b))
	case 8:
		u = order.Uint64(b)
	}
	if !dt.Signed {
		return float64(u), int64(u)
	}
	shift := 64 - 8*dt.Size
	v := int64(u<<shift) >> shift
	return float64(v), v
}

// Float64s converts every element to float64.
func Float64s(dt *message.Datatype, data []byte) ([]float64, error) {
	n, err := numeric(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i], _ = value(dt, data, i)
	}
	return out, nil
}

// Float32s converts every element to float32.
func Float32s(dt *message.Datatype, data []byte) ([]float32, error) {
	n, err := numeric(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		f, _ := value(dt, data, i)
		out[i] = float32(f)
	}
	return out, nil
}

// Int64s converts every element to int64. Floats are truncated.
func Int64s(dt *message.Datatype, data []byte) ([]int64, error) {
	n, err := numeric(dt, data)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		_, out[i] = value(dt, data, i)
	}
	return out, nil
}

// Strings decodes fixed-length strings, dropping their padding.
func Strings(dt *message.Datatype, data []byte) ([]string, error) {
	if dt.Class != message.ClassString || dt.Size == 0 {
		return nil, fmt.Errorf("%w: %s is not a fixed-length string", ErrConvert, dt)
	}
	size := int(dt.Size)
	out := make([]string, len(data)/size)
	for i := range out {
		s := data[i*size : (i+1)*size]
		if j := bytes.IndexByte(s, 0); j >= 0 {
			s = s[:j]
		}
		if dt.Pad == message.PadSpacePad {
			s = bytes.TrimRight(s, " ")
		}
		out[i] = string(s)
	}
	return out, nil
}
