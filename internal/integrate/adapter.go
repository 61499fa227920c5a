package integrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
)

// Unit is the radial unit requested from engines.
const Unit = "2th_deg"

// Request asks an engine to integrate one frame.
type Request struct {
	Frame *fetch.Frame
	// Poni is the calibration descriptor file.
	Poni string
	// Mask is an optional boolean pixel mask file.
	Mask   string
	NptRad int
	// NptAzi is zero for a 1-D integration.
	NptAzi int
	Unit   string
}

// Result is what an engine returns. Intensity has NptRad values for a 1-D
// integration and NptAzi*NptRad values, azimuth-major, for a 2-D one.
type Result struct {
	Intensity []float64
	Radial    []float64
	Azimuthal []float64
}

// Engine performs azimuthal integration.
type Engine interface {
	Integrate(ctx context.Context, req *Request) (*Result, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, req *Request) (*Result, error)

// Integrate calls fn.
func (fn EngineFunc) Integrate(ctx context.Context, req *Request) (*Result, error) {
	return fn(ctx, req)
}

// Pattern is a 1-D diffraction pattern.
type Pattern struct {
	TTH       []float64
	Intensity []float64
}

// Cake is a 2-D (azimuth, 2theta) intensity map.
type Cake struct {
	// Intensity holds len(Azi) rows of len(TTH) values.
	Intensity []float64
	TTH       []float64
	Azi       []float64
}

// Adapter integrates frames against one calibration.
type Adapter struct {
	engine Engine
	poni   string
	mask   string
}

// NewAdapter checks the calibration descriptor and optional mask and binds
// them to engine. The files are handed to the engine as they are.
func NewAdapter(engine Engine, poni, mask string) (*Adapter, error) {
	if err := checkFile(poni, ".poni", "calibration"); err != nil {
		return nil, err
	}
	if mask != "" {
		if err := checkFile(mask, ".npy", "mask"); err != nil {
			return nil, err
		}
	}
	return &Adapter{engine: engine, poni: poni, mask: mask}, nil
}

func checkFile(path, ext, what string) error {
	if !strings.EqualFold(filepath.Ext(path), ext) {
		return failure.Newf(failure.FormatUnsupported, "load "+what, path, "want a %s file", ext)
	}
	if _, err := os.Stat(path); err != nil {
		return failure.New(failure.NotFound, "load "+what, path, err)
	}
	return nil
}

// Poni returns the calibration descriptor path.
func (a *Adapter) Poni() string { return a.poni }

// Mask returns the mask path, or "" when none is set.
func (a *Adapter) Mask() string { return a.mask }

// Integrate1D integrates frame index into npt 2theta bins.
func (a *Adapter) Integrate1D(ctx context.Context, index int, frame *fetch.Frame, npt int) (*Pattern, error) {
	res, err := a.run(ctx, index, frame, npt, 0)
	if err != nil {
		return nil, err
	}
	if len(res.Intensity) != npt || len(res.Radial) != npt {
		return nil, failure.Newf(failure.IntegrationFailure, "integrate 1d", failure.Frame(index),
			"engine returned %d intensities over %d bins, want %d", len(res.Intensity), len(res.Radial), npt)
	}
	return &Pattern{TTH: res.Radial, Intensity: res.Intensity}, nil
}

// Integrate2D cakes frame index into nptAzi rows of nptRad 2theta bins.
func (a *Adapter) Integrate2D(ctx context.Context, index int, frame *fetch.Frame, nptRad, nptAzi int) (*Cake, error) {
	if nptAzi <= 0 {
		return nil, failure.Newf(failure.IntegrationFailure, "integrate 2d", failure.Frame(index), "azimuth bins must be positive, got %d", nptAzi)
	}
	res, err := a.run(ctx, index, frame, nptRad, nptAzi)
	if err != nil {
		return nil, err
	}
	if len(res.Intensity) != nptRad*nptAzi || len(res.Radial) != nptRad || len(res.Azimuthal) != nptAzi {
		return nil, failure.Newf(failure.IntegrationFailure, "integrate 2d", failure.Frame(index),
			"engine returned %d intensities over %dx%d bins, want %dx%d",
			len(res.Intensity), len(res.Azimuthal), len(res.Radial), nptAzi, nptRad)
	}
	return &Cake{Intensity: res.Intensity, TTH: res.Radial, Azi: res.Azimuthal}, nil
}

func (a *Adapter) run(ctx context.Context, index int, frame *fetch.Frame, nptRad, nptAzi int) (*Result, error) {
	op := "integrate 1d"
	if nptAzi > 0 {
		op = "integrate 2d"
	}
	if nptRad <= 0 {
		return nil, failure.Newf(failure.IntegrationFailure, op, failure.Frame(index), "radial bins must be positive, got %d", nptRad)
	}
	if frame == nil || len(frame.Shape) != 2 || len(frame.Data) != frame.Rows()*frame.Cols() {
		return nil, failure.Newf(failure.IntegrationFailure, op, failure.Frame(index), "malformed frame %v", frameShape(frame))
	}
	res, err := a.engine.Integrate(ctx, &Request{
		Frame:  frame,
		Poni:   a.poni,
		Mask:   a.mask,
		NptRad: nptRad,
		NptAzi: nptAzi,
		Unit:   Unit,
	})
	if err != nil {
		return nil, failure.New(failure.IntegrationFailure, op, failure.Frame(index), err)
	}
	if res == nil {
		return nil, failure.Newf(failure.IntegrationFailure, op, failure.Frame(index), "engine returned no result")
	}
	return res, nil
}

func frameShape(f *fetch.Frame) string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprint(f.Shape)
}
