package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// Array is an n-dimensional array of numbers in row-major order. A scalar
// has an empty shape and one element.
type Array struct {
	Shape []uint64
	Data  []float64
}

// NewArray wraps data with shape. The product of shape must equal
// len(data).
func NewArray(shape []uint64, data []float64) *Array {
	return &Array{Shape: append([]uint64(nil), shape...), Data: data}
}

// Len returns the number of elements.
func (a *Array) Len() int { return len(a.Data) }

// Scalar returns the value of a scalar array.
func (a *Array) Scalar() (float64, bool) {
	if len(a.Shape) != 0 || len(a.Data) != 1 {
		return 0, false
	}
	return a.Data[0], true
}

func (a *Array) size() uint64 {
	n := uint64(1)
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Table is a tabular frame of named float columns. It is stored as a
// group holding a "columns" dataset of names and one dataset per column.
type Table struct {
	Columns []string
	Values  [][]float64
}

// ColumnsDataset names the dataset listing a table's columns.
const ColumnsDataset = "columns"

const supportedKinds = "numeric scalar, string, numeric or string slice, *Array, *Table"

// Write stores value at p and reports whether it did. When overwrite is
// false and p exists the call leaves the file untouched, logs a warning
// and returns false. When overwrite is true an existing object at p is
// deleted first.
//
// Numeric scalars of any kind are stored as float64. Slices keep their
// element type: float32, float64, int64 (also for int) and strings.
func (s *Store) Write(p string, value any, overwrite bool) (bool, error) {
	written := false
	err := s.Update(func(f *hdf5.File) error {
		exists, err := f.Exists(p)
		if err != nil {
			return err
		}
		if exists {
			if !overwrite {
				s.logger.Warn("dataset exists; pass overwrite to replace it", "path", p, "file", s.path)
				return nil
			}
			if err := f.Delete(p); err != nil {
				return fmt.Errorf("replace %s: %w", p, err)
			}
		}
		if err := WriteValue(f, p, value); err != nil {
			return err
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if written {
		s.logger.Info("dataset written", "path", p, "file", s.path)
	}
	return written, nil
}

// WriteValue creates a dataset or table at p holding value. p must not
// exist.
func WriteValue(f *hdf5.File, p string, value any) error {
	if t, ok := value.(Table); ok {
		value = &t
	}
	if a, ok := value.(Array); ok {
		value = &a
	}
	if v, ok := scalarFloat(value); ok {
		return create(f, p, hdf5.Float64, nil, []float64{v})
	}
	switch v := value.(type) {
	case string:
		return create(f, p, hdf5.String(stringSize([]string{v})), nil, []string{v})
	case []float64:
		return create(f, p, hdf5.Float64, []uint64{uint64(len(v))}, v)
	case []float32:
		return create(f, p, hdf5.Float32, []uint64{uint64(len(v))}, v)
	case []int64:
		return create(f, p, hdf5.Int64, []uint64{uint64(len(v))}, v)
	case []int:
		return create(f, p, hdf5.Int64, []uint64{uint64(len(v))}, v)
	case []string:
		return create(f, p, hdf5.String(stringSize(v)), []uint64{uint64(len(v))}, v)
	case *Array:
		if v.size() != uint64(len(v.Data)) {
			return failure.Newf(failure.TypeMismatch, "write", p, "shape %v does not hold %d values", v.Shape, len(v.Data))
		}
		return create(f, p, hdf5.Float64, v.Shape, v.Data)
	case *Table:
		return writeTable(f, p, v)
	}
	return failure.Newf(failure.TypeMismatch, "write", p, "cannot store %T; supported: %s", value, supportedKinds)
}

func scalarFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	}
	return 0, false
}

func stringSize(v []string) uint32 {
	n := 1
	for _, s := range v {
		if len(s) > n {
			n = len(s)
		}
	}
	return uint32(n)
}

func create(f *hdf5.File, p string, dt *message.Datatype, dims []uint64, values any) error {
	ds, err := f.CreateDataset(p, dt, dims)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	return ds.Write(values)
}

func writeTable(f *hdf5.File, p string, t *Table) error {
	if len(t.Values) != len(t.Columns) {
		return failure.Newf(failure.TypeMismatch, "write", p, "%d columns but %d value slices", len(t.Columns), len(t.Values))
	}
	rows := -1
	for i, name := range t.Columns {
		if name == "" || name == ColumnsDataset || strings.Contains(name, "/") {
			return failure.Newf(failure.TypeMismatch, "write", p, "invalid column name %q", name)
		}
		if rows >= 0 && len(t.Values[i]) != rows {
			return failure.Newf(failure.TypeMismatch, "write", p, "column %q has %d rows, want %d", name, len(t.Values[i]), rows)
		}
		rows = len(t.Values[i])
	}
	if _, err := f.CreateGroup(p); err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	names := t.Columns
	if names == nil {
		names = []string{}
	}
	if err := create(f, hdf5.JoinPath(p, ColumnsDataset), hdf5.String(stringSize(names)), []uint64{uint64(len(names))}, names); err != nil {
		return err
	}
	for i, name := range t.Columns {
		if err := create(f, hdf5.JoinPath(p, name), hdf5.Float64, []uint64{uint64(len(t.Values[i]))}, t.Values[i]); err != nil {
			return err
		}
	}
	return nil
}

// Recreate deletes whatever is at p and creates an empty dataset of the
// given type and shape in its place. Storage for the whole shape is
// reserved immediately.
func Recreate(f *hdf5.File, p string, dt *message.Datatype, dims []uint64) (*hdf5.Dataset, error) {
	if err := f.Delete(p); err != nil && !errors.Is(err, hdf5.ErrNotFound) {
		return nil, fmt.Errorf("replace %s: %w", p, err)
	}
	ds, err := f.CreateDataset(p, dt, dims)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	return ds, nil
}

// Read returns the numeric dataset at p.
func (s *Store) Read(p string) (*Array, error) {
	var out *Array
	err := s.View(func(f *hdf5.File) error {
		ds, err := openDataset(f, p)
		if err != nil {
			return err
		}
		if ds.Datatype().IsString() {
			return failure.Newf(failure.TypeMismatch, "read", p, "dataset holds %s strings", ds.Dtype())
		}
		data, err := ds.ReadFloat64()
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		out = &Array{Shape: ds.Shape(), Data: data}
		return nil
	})
	return out, err
}

// ReadRows returns rows [from, to) along the first axis of the numeric
// dataset at p. The range is clamped to the dataset.
func (s *Store) ReadRows(p string, from, to int) (*Array, error) {
	var out *Array
	err := s.View(func(f *hdf5.File) error {
		ds, err := openDataset(f, p)
		if err != nil {
			return err
		}
		shape := ds.Shape()
		if len(shape) == 0 {
			return failure.Newf(failure.TypeMismatch, "read", p, "scalar dataset has no rows")
		}
		from, to = clamp(from, shape[0]), clamp(to, shape[0])
		if to < from {
			to = from
		}
		start := make([]uint64, len(shape))
		count := append([]uint64(nil), shape...)
		start[0], count[0] = uint64(from), uint64(to-from)
		data, err := ds.ReadFloat64Slice(start, count)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		out = &Array{Shape: count, Data: data}
		return nil
	})
	return out, err
}

func clamp(i int, n uint64) int {
	if i < 0 {
		return 0
	}
	if uint64(i) > n {
		return int(n)
	}
	return i
}

// ReadStrings returns the string dataset at p. A scalar string is
// returned as a one-element slice.
func (s *Store) ReadStrings(p string) ([]string, error) {
	var out []string
	err := s.View(func(f *hdf5.File) error {
		ds, err := openDataset(f, p)
		if err != nil {
			return err
		}
		if out, err = ds.ReadStrings(); err != nil {
			return failure.New(failure.TypeMismatch, "read", p, err)
		}
		return nil
	})
	return out, err
}

// ReadValue returns the dataset at p in the form it was written: float64
// for numeric scalars, string for scalar strings, []string for string
// arrays and *Array otherwise.
func (s *Store) ReadValue(p string) (any, error) {
	var isString bool
	err := s.View(func(f *hdf5.File) error {
		ds, err := openDataset(f, p)
		if err == nil {
			isString = ds.Datatype().IsString()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if isString {
		strs, err := s.ReadStrings(p)
		if err != nil {
			return nil, err
		}
		if ok, _ := s.isScalar(p); ok && len(strs) == 1 {
			return strs[0], nil
		}
		return strs, nil
	}
	a, err := s.Read(p)
	if err != nil {
		return nil, err
	}
	if v, ok := a.Scalar(); ok {
		return v, nil
	}
	return a, nil
}

func (s *Store) isScalar(p string) (bool, error) {
	var scalar bool
	err := s.View(func(f *hdf5.File) error {
		ds, err := openDataset(f, p)
		if err == nil {
			scalar = ds.IsScalar()
		}
		return err
	})
	return scalar, err
}

// ReadTable returns the table stored at p.
func (s *Store) ReadTable(p string) (*Table, error) {
	cols, err := s.ReadStrings(hdf5.JoinPath(p, ColumnsDataset))
	if err != nil {
		return nil, err
	}
	t := &Table{Columns: cols, Values: make([][]float64, len(cols))}
	for i, c := range cols {
		a, err := s.Read(hdf5.JoinPath(p, c))
		if err != nil {
			return nil, err
		}
		t.Values[i] = a.Data
	}
	return t, nil
}

// Find resolves query and returns the value of the single match, as
// ReadValue does.
func (s *Store) Find(query string) (any, error) {
	p, err := s.Resolve(query)
	if err != nil {
		return nil, err
	}
	return s.ReadValue(p)
}

// FindArray resolves query and returns the numeric dataset it names.
func (s *Store) FindArray(query string) (*Array, error) {
	p, err := s.Resolve(query)
	if err != nil {
		return nil, err
	}
	return s.Read(p)
}

func openDataset(f *hdf5.File, p string) (*hdf5.Dataset, error) {
	ds, err := f.OpenDataset(p)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, failure.New(failure.NotFound, "read", p, err)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return ds, nil
}
