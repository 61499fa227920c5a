package hdf5

import (
	"errors"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/layout"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/superblock"
)

var (
	ErrNotHDF5        = superblock.ErrNotHDF5
	ErrSelection      = layout.ErrSelection
	ErrNotFound       = errors.New("object not found")
	ErrExists         = errors.New("object already exists")
	ErrNotDataset     = errors.New("object is not a dataset")
	ErrNotGroup       = errors.New("object is not a group")
	ErrUnsupported    = errors.New("unsupported feature")
	ErrInvalidPath    = errors.New("invalid path")
	ErrClosed         = errors.New("file is closed")
	ErrLinkDepth      = errors.New("maximum link depth exceeded")
	ErrReadOnly       = errors.New("file is not open for writing")
	ErrReadOnlyFormat = errors.New("file layout cannot be edited")
	ErrOutOfBounds    = errors.New("write outside dataset extent")
	ErrTypeMismatch   = errors.New("value does not match dataset type")
)

// MaxLinkDepth bounds how many soft links one lookup may follow.
const MaxLinkDepth = 100

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
