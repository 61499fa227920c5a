// Package bulk fills the container with integrated data for every frame.
//
// Each product is written the same way: any previous dataset is deleted,
// a dataset of the final shape is reserved, and frames are integrated and
// written one at a time in increasing order. A failed frame aborts the
// product; the partly written dataset is replaced wholesale by the next
// run.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/integrate"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/logging"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/source"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

// Progress is called after each frame with the number of frames done.
type Progress func(product string, done, total int)

// Options configures a Writer.
type Options struct {
	NptTTH   int
	NptAzi   int
	Progress Progress
	Logger   *slog.Logger
}

// Writer writes integrated products of one source into one container.
type Writer struct {
	store    *store.Store
	src      source.Format
	adapter  *integrate.Adapter
	nptTTH   int
	nptAzi   int
	progress Progress
	logger   *slog.Logger
}

// New returns a Writer. Both bin counts must be positive.
func New(st *store.Store, src source.Format, adapter *integrate.Adapter, opts Options) (*Writer, error) {
	if opts.NptTTH <= 0 || opts.NptAzi <= 0 {
		return nil, failure.Newf(failure.NotInitialized, "bulk write", st.Path(),
			"bin counts must be positive, got npt_tth=%d npt_azi=%d", opts.NptTTH, opts.NptAzi)
	}
	w := &Writer{
		store:    st,
		src:      src,
		adapter:  adapter,
		nptTTH:   opts.NptTTH,
		nptAzi:   opts.NptAzi,
		progress: opts.Progress,
		logger:   opts.Logger,
	}
	if w.logger == nil {
		w.logger = logging.Discard()
	}
	if w.progress == nil {
		w.progress = func(string, int, int) {}
	}
	return w, nil
}

// Run writes parameters, coordinate arrays, patterns and cakes.
func (w *Writer) Run(ctx context.Context) error {
	if err := w.WriteParams(); err != nil {
		return err
	}
	if err := w.WriteArrays(ctx); err != nil {
		return err
	}
	if err := w.WritePatterns(ctx); err != nil {
		return err
	}
	return w.WriteCakes(ctx)
}

// WriteParams stores the frame count, bin counts and, when the source
// records one, the frame rate. A frame rate left by an earlier source is
// deleted when the current source has none.
func (w *Writer) WriteParams() error {
	params := []struct {
		path  string
		value any
	}{
		{store.FrameNumPath, w.src.FrameCount()},
		{store.NptTTHPath, w.nptTTH},
		{store.NptAziPath, w.nptAzi},
	}
	for _, p := range params {
		if _, err := w.store.Write(p.path, p.value, true); err != nil {
			return err
		}
	}
	if fps, ok := w.src.FrameRate(); ok {
		_, err := w.store.Write(store.FPSPath, fps, true)
		return err
	}
	exists, err := w.store.Exists(store.FPSPath)
	if err != nil || !exists {
		return err
	}
	w.logger.Info("removing stale frame rate", "path", store.FPSPath)
	return w.store.Delete(store.FPSPath)
}

// WriteArrays stores the frame indices and the 2theta and azimuth bin
// centres, taken from integrating frame 0.
func (w *Writer) WriteArrays(ctx context.Context) error {
	n := w.src.FrameCount()
	if n == 0 {
		return failure.Newf(failure.OutOfRange, "write arrays", w.src.Path(), "source has no frames")
	}
	frames := make([]int, n)
	for i := range frames {
		frames[i] = i
	}
	frame, err := w.src.ReadFrame(0)
	if err != nil {
		return err
	}
	pattern, err := w.adapter.Integrate1D(ctx, 0, frame, w.nptTTH)
	if err != nil {
		return err
	}
	cake, err := w.adapter.Integrate2D(ctx, 0, frame, w.nptTTH, w.nptAzi)
	if err != nil {
		return err
	}
	for _, a := range []struct {
		path  string
		value any
	}{
		{store.FrameArrPath, frames},
		{store.TTHArrPath, pattern.TTH},
		{store.AziArrPath, cake.Azi},
	} {
		if _, err := w.store.Write(a.path, a.value, true); err != nil {
			return err
		}
	}
	return nil
}

// WritePatterns writes the (frames, npt_tth) pattern dataset.
func (w *Writer) WritePatterns(ctx context.Context) error {
	return w.sweep(ctx, "pattern", store.PatternPath, []uint64{uint64(w.nptTTH)},
		func(i int, frame *fetch.Frame) ([]float64, error) {
			p, err := w.adapter.Integrate1D(ctx, i, frame, w.nptTTH)
			if err != nil {
				return nil, err
			}
			return p.Intensity, nil
		})
}

// WriteCakes writes the (frames, npt_azi, npt_tth) cake dataset.
func (w *Writer) WriteCakes(ctx context.Context) error {
	return w.sweep(ctx, "cake", store.CakePath, []uint64{uint64(w.nptAzi), uint64(w.nptTTH)},
		func(i int, frame *fetch.Frame) ([]float64, error) {
			c, err := w.adapter.Integrate2D(ctx, i, frame, w.nptTTH, w.nptAzi)
			if err != nil {
				return nil, err
			}
			return c.Intensity, nil
		})
}

// sweep recreates path with one row of rowShape per frame and fills it in
// frame order.
func (w *Writer) sweep(ctx context.Context, product, path string, rowShape []uint64, integrateFrame func(int, *fetch.Frame) ([]float64, error)) error {
	n := w.src.FrameCount()
	logger := logging.WithRun(w.logger, "bulk").With("product", product, "path", path)
	start := time.Now()
	logger.Info("writing frames", "frames", n, "row_shape", rowShape)

	err := w.store.Update(func(f *hdf5.File) error {
		ds, err := store.Recreate(f, path, hdf5.Float32, append([]uint64{uint64(n)}, rowShape...))
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%s stopped before frame %d: %w", product, i, err)
			}
			frame, err := w.src.ReadFrame(i)
			if err != nil {
				return err
			}
			row, err := integrateFrame(i, frame)
			if err != nil {
				return err
			}
			if err := ds.WriteValues(uint64(i), row); err != nil {
				return fmt.Errorf("write %s frame %d: %w", path, i, err)
			}
			w.progress(product, i+1, n)
			logger.Debug("frame written", "frame", i)
		}
		return nil
	})
	if err != nil {
		logger.Error("bulk write aborted", "error", err)
		return err
	}
	logger.Info("frames written", "frames", n, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
