// Package source reads detector frames from acquisition files.
//
// Each supported file format implements Format. The frame index space a
// Format exposes is the one every later stage uses; any remapping between
// logical and physical frames happens inside ReadFrame and nowhere else.
package source

import (
	"path/filepath"
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

// Format is an open acquisition file.
type Format interface {
	// Path returns the file the frames come from.
	Path() string
	// FrameCount returns the number of logical frames.
	FrameCount() int
	// FrameRate returns frames per second, or false when the format does
	// not record exposure times.
	FrameRate() (float64, bool)
	// ReadFrame returns logical frame i as a 2-D array.
	ReadFrame(i int) (*fetch.Frame, error)
}

// Options tunes how formats locate their data.
type Options struct {
	// DataQuery selects the 3-D frame dataset of plain HDF5 files by
	// substring. Defaults to "data".
	DataQuery string
}

// Open opens path with the format its extension names.
func Open(path string, opts Options) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nxs":
		return OpenNXS(path)
	case ".hdf5", ".hdf", ".h5":
		q := opts.DataQuery
		if q == "" {
			q = "data"
		}
		return OpenHDF(path, q)
	}
	return nil, failure.Newf(failure.FormatUnsupported, "open source", path,
		"supported extensions: %s", strings.Join(store.Extensions, ", "))
}

// frames wraps a fetcher over a (frames, rows, cols) dataset.
type frames struct {
	path string
	ft   *fetch.Fetcher
}

func openFrames(path, dataset string) (*frames, error) {
	ft, err := fetch.New(path, dataset)
	if err != nil {
		return nil, err
	}
	if len(ft.Shape()) != 3 {
		return nil, failure.Newf(failure.TypeMismatch, "open source", dataset,
			"frame data has shape %v, want (frames, rows, cols)", ft.Shape())
	}
	return &frames{path: path, ft: ft}, nil
}

func (fr *frames) Path() string    { return fr.path }
func (fr *frames) FrameCount() int { return fr.ft.Len() }

func (fr *frames) checkIndex(i int) error {
	if i < 0 || i >= fr.FrameCount() {
		return failure.Newf(failure.OutOfRange, "read frame", failure.Frame(i),
			"%s has %d frames", fr.path, fr.FrameCount())
	}
	return nil
}

// HDF is a plain HDF5 file holding one 3-D frame dataset. It records no
// exposure time.
type HDF struct {
	*frames
}

// OpenHDF opens a plain HDF5 file, locating the frame dataset as the only
// 3-D dataset whose path contains query.
func OpenHDF(path, query string) (*HDF, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	paths, err := f.DatasetPaths()
	if err != nil {
		f.Close()
		return nil, err
	}
	var cubes []string
	for _, p := range store.Match(paths, query) {
		if ds, err := f.OpenDataset(p); err == nil && ds.Rank() == 3 {
			cubes = append(cubes, p)
		}
	}
	f.Close()
	switch len(cubes) {
	case 0:
		return nil, failure.Newf(failure.NotFound, "open source", query, "no 3-D dataset in %s", path)
	case 1:
	default:
		return nil, failure.NewAmbiguous("open source", query, cubes)
	}
	fr, err := openFrames(path, cubes[0])
	if err != nil {
		return nil, err
	}
	return &HDF{frames: fr}, nil
}

// FrameRate is always absent for plain HDF5 files.
func (h *HDF) FrameRate() (float64, bool) { return 0, false }

// ReadFrame returns frame i unchanged.
func (h *HDF) ReadFrame(i int) (*fetch.Frame, error) {
	if err := h.checkIndex(i); err != nil {
		return nil, err
	}
	return h.ft.Fetch(i)
}
