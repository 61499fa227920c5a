package store

import (
	"strconv"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
)

// Entry describes one object of the container.
type Entry struct {
	Path    string
	Group   bool
	Shape   []uint64
	Dtype   string
	Bytes   uint64
	Preview []string
	Err     error
}

// Contents lists every group and dataset with up to preview leading
// values of each dataset.
func (s *Store) Contents(preview int) ([]Entry, error) {
	var out []Entry
	err := s.View(func(f *hdf5.File) error {
		entries, err := Describe(f, preview)
		out = entries
		return err
	})
	return out, err
}

// Describe walks an open file the way Contents does. It is shared with
// the inspect command, which reads arbitrary HDF5 files.
func Describe(f *hdf5.File, preview int) ([]Entry, error) {
	root, err := f.Root()
	if err != nil {
		return nil, err
	}
	var out []Entry
	err = hdf5.Walk(root, func(p string, obj any, err error) error {
		if err != nil {
			out = append(out, Entry{Path: p, Err: err})
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			if p != "/" {
				out = append(out, Entry{Path: p, Group: true})
			}
		case *hdf5.Dataset:
			out = append(out, describeDataset(p, o, preview))
		}
		return nil
	})
	return out, err
}

func describeDataset(p string, ds *hdf5.Dataset, preview int) Entry {
	e := Entry{
		Path:  p,
		Shape: ds.Shape(),
		Dtype: ds.Dtype(),
		Bytes: ds.NumElements() * uint64(ds.Datatype().Size),
	}
	if preview <= 0 || ds.NumElements() == 0 {
		return e
	}
	n := uint64(preview)
	if ds.NumElements() < n {
		n = ds.NumElements()
	}
	if ds.Datatype().IsString() {
		strs, err := ds.ReadStrings()
		if err != nil {
			e.Err = err
			return e
		}
		if uint64(len(strs)) > n {
			strs = strs[:n]
		}
		e.Preview = strs
		return e
	}
	var vals []float64
	var err error
	if ds.IsScalar() {
		vals, err = ds.ReadFloat64()
	} else {
		// the first n elements of the innermost row
		start := make([]uint64, ds.Rank())
		count := make([]uint64, ds.Rank())
		for i := range count {
			count[i] = 1
		}
		last := ds.Rank() - 1
		if dim := ds.Shape()[last]; dim < n {
			n = dim
		}
		count[last] = n
		vals, err = ds.ReadFloat64Slice(start, count)
	}
	if err != nil {
		e.Err = err
		return e
	}
	for _, v := range vals {
		e.Preview = append(e.Preview, strconv.FormatFloat(v, 'g', 6, 64))
	}
	return e
}
