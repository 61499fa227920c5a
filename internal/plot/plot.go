// Package plot renders pattern, cake and peak series images as PNG.
package plot

import (
	"fmt"
	"io"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

// Default image size.
const (
	Width  = 6 * vg.Inch
	Height = 4 * vg.Inch
)

// Grid is a row-major image whose columns sit at X and rows at Y.
type Grid struct {
	Xs     []float64
	Ys     []float64
	Values []float64
}

// NewGrid checks that z holds len(y) rows of len(x) values.
func NewGrid(x, y, z []float64) (*Grid, error) {
	if len(x) == 0 || len(y) == 0 {
		return nil, failure.Newf(failure.OutOfRange, "plot", "grid", "empty grid %dx%d", len(y), len(x))
	}
	if len(z) != len(x)*len(y) {
		return nil, failure.Newf(failure.TypeMismatch, "plot", "grid",
			"%d values for a %dx%d grid", len(z), len(y), len(x))
	}
	return &Grid{Xs: x, Ys: y, Values: z}, nil
}

// Indices returns 0, 1, ..., n-1 as coordinates.
func Indices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func (g *Grid) Dims() (c, r int)   { return len(g.Xs), len(g.Ys) }
func (g *Grid) Z(c, r int) float64 { return g.Values[r*len(g.Xs)+c] }
func (g *Grid) X(c int) float64    { return g.Xs[c] }
func (g *Grid) Y(r int) float64    { return g.Ys[r] }

// Labels titles a figure.
type Labels struct {
	Title string
	X     string
	Y     string
}

// Heatmap draws g with the Kindlmann palette.
func Heatmap(g *Grid, l Labels) *plot.Plot {
	p := newPlot(l)
	h := plotter.NewHeatMap(g, moreland.Kindlmann().Palette(255))
	h.Min, h.Max = limits(g.Values)
	colors := h.Palette.Colors()
	h.NaN = colors[0]
	h.Underflow = colors[0]
	h.Overflow = colors[len(colors)-1]
	p.Add(h)
	return p
}

// Line draws y against x.
func Line(x, y []float64, l Labels) (*plot.Plot, error) {
	if len(x) != len(y) {
		return nil, failure.Newf(failure.TypeMismatch, "plot", "line", "%d x values for %d y values", len(x), len(y))
	}
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	p := newPlot(l)
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("plot: line: %w", err)
	}
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// Write encodes p as a PNG of the default size.
func Write(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}

// Save writes p to the file at path.
func Save(path string, p *plot.Plot) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("plot: %w", cerr)
		}
	}()
	return Write(f, p)
}

func newPlot(l Labels) *plot.Plot {
	p := plot.New()
	p.Title.Text = l.Title
	p.X.Label.Text = l.X
	p.Y.Label.Text = l.Y
	return p
}

// limits returns the finite range of z, widened when it is a single value.
func limits(z []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range z {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	switch {
	case lo > hi:
		return 0, 1
	case lo == hi:
		return lo, lo + 1
	}
	return lo, hi
}
