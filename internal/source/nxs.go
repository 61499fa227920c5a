package source

import (
	"errors"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
)

// NeXus detector paths.
const (
	DetectorPath  = "/entry/instrument/detector"
	DataPath      = DetectorPath + "/data"
	CountTimePath = DetectorPath + "/count_time"
)

// NXS is a NeXus file from an area detector.
//
// When the file holds more than one exposure the first one is frequently
// unusable, so logical frame 0 is read from physical frame 1.
type NXS struct {
	*frames
	rate    float64
	hasRate bool
}

// OpenNXS opens a NeXus file and reads its exposure time, in
// milliseconds, from the first count_time entry.
func OpenNXS(path string) (*NXS, error) {
	fr, err := openFrames(path, DataPath)
	if err != nil {
		return nil, err
	}
	n := &NXS{frames: fr}
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ds, err := f.OpenDataset(CountTimePath)
	switch {
	case errors.Is(err, hdf5.ErrNotFound):
		return n, nil
	case err != nil:
		return nil, err
	}
	ms, err := ds.ReadFloat64()
	if err != nil {
		return nil, err
	}
	if len(ms) > 0 && ms[0] > 0 {
		n.rate, n.hasRate = 1000/ms[0], true
	}
	return n, nil
}

// FrameRate returns 1000 / count_time[0].
func (n *NXS) FrameRate() (float64, bool) { return n.rate, n.hasRate }

// ReadFrame returns logical frame i.
func (n *NXS) ReadFrame(i int) (*fetch.Frame, error) {
	if err := n.checkIndex(i); err != nil {
		return nil, err
	}
	return n.ft.Fetch(n.physical(i))
}

func (n *NXS) physical(i int) int {
	if i == 0 && n.FrameCount() > 1 {
		return 1
	}
	return i
}
