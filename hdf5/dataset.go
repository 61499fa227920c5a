package hdf5

import (
	"fmt"
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/dtype"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/layout"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/object"
)

// Element types for CreateDataset.
var (
	Float32 = message.NewFloat(4)
	Float64 = message.NewFloat(8)
	Int64   = message.NewInt(8, true)
)

// String returns a fixed-length string type of size bytes.
func String(size uint32) *message.Datatype { return message.NewString(size) }

// Dataset is a typed, shaped array stored in a file.
type Dataset struct {
	file    *File
	path    string
	addr    uint64
	space   *message.Dataspace
	dtype   *message.Datatype
	storage *message.DataLayout
	layout  layout.Layout
}

func newDataset(f *File, path string, h *object.Header) (*Dataset, error) {
	ds := &Dataset{
		file:    f,
		path:    path,
		addr:    h.Address,
		space:   h.Dataspace(),
		dtype:   h.Datatype(),
		storage: h.Layout(),
	}
	if ds.dtype == nil {
		return nil, fmt.Errorf("%s: missing datatype", path)
	}
	l, err := layout.New(f.reader, ds.storage, ds.space, ds.dtype, h.Filters())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	ds.layout = l
	return ds, nil
}

// Name returns the last component of the dataset path.
func (d *Dataset) Name() string { return d.path[strings.LastIndex(d.path, "/")+1:] }

// Path returns the absolute path of the dataset.
func (d *Dataset) Path() string { return d.path }

// Shape returns a copy of the dimensions. Scalars have an empty shape.
func (d *Dataset) Shape() []uint64 { return append([]uint64(nil), d.space.Dims...) }

// Rank is the number of dimensions.
func (d *Dataset) Rank() int { return len(d.space.Dims) }

// NumElements is the product of the dimensions.
func (d *Dataset) NumElements() uint64 { return d.space.NumElements() }

// IsScalar reports whether the dataset holds a single value without shape.
func (d *Dataset) IsScalar() bool { return d.space.IsScalar() }

// Datatype returns the element type.
func (d *Dataset) Datatype() *message.Datatype { return d.dtype }

// Dtype names the element type the way numpy does, e.g. "<f4".
func (d *Dataset) Dtype() string { return d.dtype.String() }

// ReadSlice returns the raw bytes of a hyperslab.
func (d *Dataset) ReadSlice(start, count []uint64) ([]byte, error) {
	b, err := d.layout.ReadSlice(start, count)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return b, nil
}

// ReadRaw returns the raw bytes of the whole dataset.
func (d *Dataset) ReadRaw() ([]byte, error) {
	return d.ReadSlice(layout.Full(d.space.Dims))
}

// ReadFloat64 reads every element as float64.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	return d.ReadFloat64Slice(layout.Full(d.space.Dims))
}

// ReadFloat64Slice reads a hyperslab as float64.
func (d *Dataset) ReadFloat64Slice(start, count []uint64) ([]float64, error) {
	b, err := d.ReadSlice(start, count)
	if err != nil {
		return nil, err
	}
	v, err := dtype.Float64s(d.dtype, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return v, nil
}

// ReadFloat32Slice reads a hyperslab as float32.
func (d *Dataset) ReadFloat32Slice(start, count []uint64) ([]float32, error) {
	b, err := d.ReadSlice(start, count)
	if err != nil {
		return nil, err
	}
	v, err := dtype.Float32s(d.dtype, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return v, nil
}

// ReadInt64 reads every element as int64.
func (d *Dataset) ReadInt64() ([]int64, error) {
	b, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	v, err := dtype.Int64s(d.dtype, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return v, nil
}

// ReadStrings reads fixed-length string elements.
func (d *Dataset) ReadStrings() ([]string, error) {
	b, err := d.ReadRaw()
	if err != nil {
		return nil, err
	}
	v, err := dtype.Strings(d.dtype, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, err)
	}
	return v, nil
}

// ReadRow reads index i of the outermost dimension as float64 and returns
// it with its shape. Only that row is read from storage.
func (d *Dataset) ReadRow(i uint64) ([]float64, []uint64, error) {
	if d.Rank() == 0 {
		return nil, nil, fmt.Errorf("%s: %w: scalar has no rows", d.path, ErrInvalidPath)
	}
	start := make([]uint64, d.Rank())
	start[0] = i
	count := d.Shape()
	count[0] = 1
	v, err := d.ReadFloat64Slice(start, count)
	if err != nil {
		return nil, nil, err
	}
	return v, count[1:], nil
}
