// Package hdf5 reads and edits HDF5 container files in pure Go.
//
// Reading covers files written by the reference library and by h5py:
// superblocks version 0 to 3, both object header versions, symbol-table
// and compact groups, and compact, contiguous or chunked datasets with
// deflate, shuffle and fletcher32 filters.
//
// Files created by this package use a version 3 superblock, version 2
// object headers and compact link storage. Datasets are written with
// contiguous storage reserved at creation, which lets large arrays be
// filled one outer-dimension row at a time:
//
//	f, err := hdf5.Create("out.h5")
//	ds, err := f.CreateDataset("entry/pattern", hdf5.Float32, []uint64{frames, bins})
//	err = ds.WriteValues(frame, intensities)
//
// Editing is limited to files in that layout. Opening an older file for
// writing returns ErrReadOnlyFormat.
package hdf5
