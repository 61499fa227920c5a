package plot

import (
	"fmt"

	"gonum.org/v1/plot"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

// Pattern draws a (frames, bins) pattern stack against 2theta.
func Pattern(tth []float64, pattern *store.Array) (*plot.Plot, error) {
	if len(pattern.Shape) != 2 || int(pattern.Shape[1]) != len(tth) {
		return nil, failure.Newf(failure.TypeMismatch, "plot pattern", "pattern",
			"shape %v does not match %d 2theta bins", pattern.Shape, len(tth))
	}
	g, err := NewGrid(tth, Indices(int(pattern.Shape[0])), pattern.Data)
	if err != nil {
		return nil, err
	}
	return Heatmap(g, Labels{Title: "pattern", X: "2θ (deg)", Y: "frame"}), nil
}

// CakeFrame draws one (azi, tth) cake frame.
func CakeFrame(index int, tth, azi []float64, fr *fetch.Frame) (*plot.Plot, error) {
	if fr.Rows() != len(azi) || fr.Cols() != len(tth) {
		return nil, failure.Newf(failure.TypeMismatch, "plot cake", failure.Frame(index),
			"shape %v does not match %d azimuth x %d 2theta bins", fr.Shape, len(azi), len(tth))
	}
	g, err := NewGrid(tth, azi, fr.Data)
	if err != nil {
		return nil, err
	}
	return Heatmap(g, Labels{Title: fmt.Sprintf("cake, frame %d", index), X: "2θ (deg)", Y: "azimuth (deg)"}), nil
}

// PeakSeries draws a reduced (frames, width) peak series whose columns sit
// at coords, labelled by axis.
func PeakSeries(number int, axis string, coords []float64, series *store.Array) (*plot.Plot, error) {
	subject := fmt.Sprintf("peak %d", number)
	if len(series.Shape) != 2 || int(series.Shape[1]) != len(coords) {
		return nil, failure.Newf(failure.TypeMismatch, "plot peak", subject,
			"shape %v does not match %d coordinates", series.Shape, len(coords))
	}
	g, err := NewGrid(coords, Indices(int(series.Shape[0])), series.Data)
	if err != nil {
		return nil, err
	}
	return Heatmap(g, Labels{Title: fmt.Sprintf("%s, %s", subject, axis), X: axis + " (deg)", Y: "frame"}), nil
}
