// Package peak re-aggregates a user-selected window of the caked data.
//
// A Definition holds a window in 2theta, azimuth and frame space. Reduce
// maps its angular bounds to bin indices, then averages the window of
// every frame's cake slice along each axis and stores the two resulting
// time series under the peak's group.
package peak

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/config"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

// Definition is a peak window.
type Definition struct {
	Number    int
	FromTTH   float64
	ToTTH     float64
	FromAzi   float64
	ToAzi     float64
	FromFrame int
	ToFrame   int
}

// FromRecord builds the definition of peak n from its persisted record.
func FromRecord(n int, r config.Peak) Definition {
	return Definition{
		Number:    n,
		FromTTH:   r.FromTTH,
		ToTTH:     r.ToTTH,
		FromAzi:   r.FromAzi,
		ToAzi:     r.ToAzi,
		FromFrame: r.FromFrame,
		ToFrame:   r.ToFrame,
	}
}

// Record returns the persisted form of d.
func (d Definition) Record() config.Peak {
	return config.Peak{
		FromTTH:   d.FromTTH,
		ToTTH:     d.ToTTH,
		FromAzi:   d.FromAzi,
		ToAzi:     d.ToAzi,
		FromFrame: d.FromFrame,
		ToFrame:   d.ToFrame,
	}
}

// Bounds are the bin indices of a window. Ranges are half-open.
type Bounds struct {
	FromTTH int
	ToTTH   int
	FromAzi int
	ToAzi   int
}

// TTHWidth returns the number of 2theta bins in the window, zero when the
// window is empty.
func (b Bounds) TTHWidth() int { return max(0, b.ToTTH-b.FromTTH) }

// AziWidth returns the number of azimuth bins in the window, zero when the
// window is empty.
func (b Bounds) AziWidth() int { return max(0, b.ToAzi-b.FromAzi) }

func (b Bounds) String() string {
	return fmt.Sprintf("tth[%d:%d] azi[%d:%d]", b.FromTTH, b.ToTTH, b.FromAzi, b.ToAzi)
}

// NearestBin returns the index of the coordinate closest to v. Ties go to
// the lowest index.
func NearestBin(coords []float64, v float64) (int, error) {
	if len(coords) == 0 {
		return 0, failure.Newf(failure.NotInitialized, "nearest bin", fmt.Sprint(v), "empty coordinate array")
	}
	dist := append([]float64(nil), coords...)
	floats.AddConst(-v, dist)
	for i, x := range dist {
		dist[i] = math.Abs(x)
	}
	return floats.MinIdx(dist), nil
}

// Bounds maps the window's angles to bin indices of the 2theta and
// azimuth coordinate arrays.
func (d Definition) Bounds(tth, azi []float64) (Bounds, error) {
	var b Bounds
	var err error
	for _, m := range []struct {
		coords []float64
		v      float64
		dst    *int
	}{
		{tth, d.FromTTH, &b.FromTTH},
		{tth, d.ToTTH, &b.ToTTH},
		{azi, d.FromAzi, &b.FromAzi},
		{azi, d.ToAzi, &b.ToAzi},
	} {
		if *m.dst, err = NearestBin(m.coords, m.v); err != nil {
			return Bounds{}, err
		}
	}
	return b, nil
}
