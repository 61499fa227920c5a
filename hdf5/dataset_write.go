package hdf5

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/dtype"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/layout"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// WriteRows writes raw element bytes starting at index row of the
// outermost dimension. data must hold whole rows. Writes to disjoint rows
// may run concurrently.
func (d *Dataset) WriteRows(row uint64, data []byte) error {
	if d.file.closed {
		return ErrClosed
	}
	if !d.file.writable {
		return ErrReadOnly
	}
	c, ok := d.layout.(*layout.Contiguous)
	if !ok {
		return fmt.Errorf("%s: %w: writes need contiguous storage", d.path, ErrUnsupported)
	}
	if d.Rank() == 0 {
		if row != 0 || len(data) != int(d.dtype.Size) {
			return fmt.Errorf("%s: %w: scalar takes one %d-byte value", d.path, ErrOutOfBounds, d.dtype.Size)
		}
		return d.write(c.Address(), data)
	}
	size := c.RowSize()
	if size == 0 {
		if len(data) == 0 && row <= d.space.Dims[0] {
			return nil
		}
		return fmt.Errorf("%s: %w: rows are empty", d.path, ErrOutOfBounds)
	}
	if uint64(len(data))%size != 0 {
		return fmt.Errorf("%s: %w: %d bytes is not a whole number of %d-byte rows", d.path, ErrOutOfBounds, len(data), size)
	}
	n := uint64(len(data)) / size
	if row+n > d.space.Dims[0] {
		return fmt.Errorf("%s: %w: rows [%d, %d) of %d", d.path, ErrOutOfBounds, row, row+n, d.space.Dims[0])
	}
	return d.write(c.Address()+row*size, data)
}

func (d *Dataset) write(addr uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if d.file.reader.IsUndefined(d.storage.Address) {
		return fmt.Errorf("%s: %w: storage not allocated", d.path, ErrUnsupported)
	}
	if _, err := d.file.file.WriteAt(data, int64(addr)); err != nil {
		return fmt.Errorf("%s: %w", d.path, err)
	}
	return nil
}

// WriteValues converts values to the dataset's element type and writes
// them starting at row. Accepted slices are []float32, []float64, []int64,
// []int and []string.
func (d *Dataset) WriteValues(row uint64, values any) error {
	b, err := encodeAs(d.dtype, values)
	if err != nil {
		return fmt.Errorf("%s: %w", d.path, err)
	}
	return d.WriteRows(row, b)
}

// Write replaces the whole dataset with values.
func (d *Dataset) Write(values any) error {
	b, err := encodeAs(d.dtype, values)
	if err != nil {
		return fmt.Errorf("%s: %w", d.path, err)
	}
	if want := d.NumElements() * uint64(d.dtype.Size); uint64(len(b)) != want {
		return fmt.Errorf("%s: %w: %d bytes for a %d-byte dataset", d.path, ErrOutOfBounds, len(b), want)
	}
	return d.WriteRows(0, b)
}

func encodeAs(dt *message.Datatype, values any) ([]byte, error) {
	if s, ok := values.([]string); ok {
		if dt.Class != message.ClassString {
			return nil, fmt.Errorf("%w: strings into %s", ErrTypeMismatch, dt)
		}
		return dtype.EncodeStrings(s, dt.Size), nil
	}

	var f64 []float64
	switch v := values.(type) {
	case []float64:
		f64 = v
	case []float32:
		if dt.Class == message.ClassFloatPoint && dt.Size == 4 && !dt.BigEndian {
			return dtype.EncodeFloat32s(v), nil
		}
		f64 = make([]float64, len(v))
		for i, x := range v {
			f64[i] = float64(x)
		}
	case []int64:
		if dt.Class == message.ClassFixedPoint && dt.Size == 8 && !dt.BigEndian {
			return dtype.EncodeInt64s(v), nil
		}
		f64 = make([]float64, len(v))
		for i, x := range v {
			f64[i] = float64(x)
		}
	case []int:
		i64 := make([]int64, len(v))
		for i, x := range v {
			i64[i] = int64(x)
		}
		return encodeAs(dt, i64)
	default:
		return nil, fmt.Errorf("%w: cannot write %T", ErrTypeMismatch, values)
	}

	switch {
	case dt.BigEndian:
	case dt.Class == message.ClassFloatPoint && dt.Size == 4:
		f32 := make([]float32, len(f64))
		for i, x := range f64 {
			f32[i] = float32(x)
		}
		return dtype.EncodeFloat32s(f32), nil
	case dt.Class == message.ClassFloatPoint && dt.Size == 8:
		return dtype.EncodeFloat64s(f64), nil
	case dt.Class == message.ClassFixedPoint && dt.Size == 8:
		i64 := make([]int64, len(f64))
		for i, x := range f64 {
			i64[i] = int64(x)
		}
		return dtype.EncodeInt64s(i64), nil
	}
	return nil, fmt.Errorf("%w: numbers into %s", ErrTypeMismatch, dt)
}
