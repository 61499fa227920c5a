// Package fetch reads single frames from large on-disk arrays.
//
// A Fetcher is bound to one dataset. It reads the dataset's shape once and
// then returns one slice along the first axis per call, opening the file
// for each read so that concurrent callers never share a handle.
package fetch

import (
	"errors"
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

// Frame is one slice of a dataset along its first axis, row-major.
type Frame struct {
	Shape []uint64
	Data  []float64
}

// Rows returns the length of the frame's first axis, or 1 for a 1-D frame.
func (f *Frame) Rows() int {
	if len(f.Shape) < 2 {
		return 1
	}
	return int(f.Shape[0])
}

// Cols returns the length of the frame's last axis.
func (f *Frame) Cols() int {
	if len(f.Shape) == 0 {
		return 1
	}
	return int(f.Shape[len(f.Shape)-1])
}

// At returns the element at row r, column c of a 2-D frame.
func (f *Frame) At(r, c int) float64 { return f.Data[r*f.Cols()+c] }

// Row returns row r of a 2-D frame without copying.
func (f *Frame) Row(r int) []float64 {
	n := f.Cols()
	return f.Data[r*n : (r+1)*n]
}

// Fetcher reads frames of one dataset.
type Fetcher struct {
	file  string
	path  string
	shape []uint64
}

// New binds a fetcher to the dataset at path inside file and caches its
// shape. An empty path yields a fetcher whose reads fail as not
// initialized.
func New(file, path string) (*Fetcher, error) {
	ft := &Fetcher{file: file, path: path}
	if path == "" {
		return ft, nil
	}
	f, err := hdf5.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := f.OpenDataset(path)
	if err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return nil, failure.New(failure.NotFound, "fetch", path, err)
		}
		return nil, err
	}
	if ds.Rank() == 0 {
		return nil, failure.Newf(failure.TypeMismatch, "fetch", path, "scalar dataset has no frames")
	}
	ft.shape = ds.Shape()
	return ft, nil
}

// Path returns the dataset path the fetcher is bound to.
func (ft *Fetcher) Path() string { return ft.path }

// Shape returns the cached dataset shape, or nil when not initialized.
func (ft *Fetcher) Shape() []uint64 { return append([]uint64(nil), ft.shape...) }

// Len returns the number of frames.
func (ft *Fetcher) Len() int {
	if len(ft.shape) == 0 {
		return 0
	}
	return int(ft.shape[0])
}

// Fetch reads frame i. Only that frame is read from disk.
func (ft *Fetcher) Fetch(i int) (*Frame, error) {
	if ft.shape == nil {
		return nil, failure.Newf(failure.NotInitialized, "fetch", failure.Frame(i), "no dataset path set")
	}
	if i < 0 || uint64(i) >= ft.shape[0] {
		return nil, failure.Newf(failure.OutOfRange, "fetch", failure.Frame(i),
			"%s has %d frames", ft.path, ft.shape[0])
	}
	f, err := hdf5.Open(ft.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := f.OpenDataset(ft.path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ft.path, err)
	}
	data, shape, err := ds.ReadRow(uint64(i))
	if err != nil {
		return nil, fmt.Errorf("fetch %s frame %d: %w", ft.path, i, err)
	}
	return &Frame{Shape: shape, Data: data}, nil
}
