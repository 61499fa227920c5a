package peak

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/logging"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

// MaxWorkers caps the default reduction pool.
const MaxWorkers = 8

// PoolSize returns the default number of reduction workers for a machine
// with cpus cores: two cores are left free, at most MaxWorkers are used
// and there is always at least one.
func PoolSize(cpus int) int {
	return max(1, min(MaxWorkers, cpus-2))
}

// Options configures a Reducer.
type Options struct {
	// Workers bounds concurrent frames; zero uses PoolSize(runtime.NumCPU()).
	Workers  int
	Progress func(done, total int)
	Logger   *slog.Logger
}

// Reducer reduces peak windows of one container.
type Reducer struct {
	store    *store.Store
	workers  int
	progress func(done, total int)
	logger   *slog.Logger
}

// NewReducer returns a Reducer over st.
func NewReducer(st *store.Store, opts Options) *Reducer {
	r := &Reducer{store: st, workers: opts.Workers, progress: opts.Progress, logger: opts.Logger}
	if r.workers <= 0 {
		r.workers = PoolSize(runtime.NumCPU())
	}
	if r.progress == nil {
		r.progress = func(int, int) {}
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	return r
}

// Result describes a finished reduction.
type Result struct {
	Bounds  Bounds
	Frames  int
	TTHPath string
	AziPath string
}

// Reduce averages the window of d over frames [0, frameCount) of the cake
// and writes a (frameCount, tth width) 2theta series and a (frameCount,
// azi width) azimuth series for peak d.Number, replacing earlier ones.
// Frames are processed concurrently; row i of each output always comes
// from frame i.
//
// An empty window yields zero-width outputs. A window empty along one axis
// only makes every value of the other series NaN.
func (r *Reducer) Reduce(ctx context.Context, d Definition, frameCount int) (*Result, error) {
	tth, err := r.store.FindArray(store.TTHArrQuery)
	if err != nil {
		return nil, err
	}
	azi, err := r.store.FindArray(store.AziArrQuery)
	if err != nil {
		return nil, err
	}
	b, err := d.Bounds(tth.Data, azi.Data)
	if err != nil {
		return nil, err
	}
	cake, err := r.store.Fetcher(store.CakeQuery)
	if err != nil {
		return nil, err
	}
	shape := cake.Shape()
	if len(shape) != 3 || shape[1] != uint64(len(azi.Data)) || shape[2] != uint64(len(tth.Data)) {
		return nil, failure.Newf(failure.TypeMismatch, "reduce peak", cake.Path(),
			"cake shape %v does not match %d azimuth and %d 2theta bins", shape, len(azi.Data), len(tth.Data))
	}
	if frameCount < 0 || frameCount > cake.Len() {
		return nil, failure.Newf(failure.OutOfRange, "reduce peak", fmt.Sprintf("%d frames", frameCount),
			"%s has %d frames", cake.Path(), cake.Len())
	}

	res := &Result{
		Bounds:  b,
		Frames:  frameCount,
		TTHPath: store.PeakTTHPath(d.Number),
		AziPath: store.PeakAziPath(d.Number),
	}
	logger := logging.WithRun(r.logger, "peak").With("peak", d.Number, "bounds", b.String())
	start := time.Now()
	logger.Info("reducing peak window", "frames", frameCount, "workers", r.workers)

	err = r.store.Update(func(f *hdf5.File) error {
		tthOut, err := store.Recreate(f, res.TTHPath, hdf5.Float32, []uint64{uint64(frameCount), uint64(b.TTHWidth())})
		if err != nil {
			return err
		}
		aziOut, err := store.Recreate(f, res.AziPath, hdf5.Float32, []uint64{uint64(frameCount), uint64(b.AziWidth())})
		if err != nil {
			return err
		}
		// workers read the cake through their own handles
		if err := f.Flush(); err != nil {
			return err
		}
		return r.run(ctx, cake, b, frameCount, tthOut, aziOut)
	})
	if err != nil {
		logger.Error("peak reduction aborted", "error", err)
		return nil, err
	}
	logger.Info("peak reduced", "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (r *Reducer) run(ctx context.Context, cake *fetch.Fetcher, b Bounds, n int, tthOut, aziOut *hdf5.Dataset) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	var mu sync.Mutex
	done := 0
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fr, err := cake.Fetch(i)
			if err != nil {
				return err
			}
			tthRow, aziRow := Window(fr, b)
			if err := tthOut.WriteValues(uint64(i), tthRow); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			if err := aziOut.WriteValues(uint64(i), aziRow); err != nil {
				return fmt.Errorf("write frame %d: %w", i, err)
			}
			mu.Lock()
			done++
			r.progress(done, n)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Window averages the window b of one (azimuth, 2theta) cake slice. tth
// holds the mean of each 2theta column over the window's azimuth rows and
// azi the mean of each azimuth row over the window's 2theta columns.
func Window(fr *fetch.Frame, b Bounds) (tth, azi []float64) {
	tw, aw := b.TTHWidth(), b.AziWidth()
	tth = make([]float64, tw)
	azi = make([]float64, aw)
	col := make([]float64, aw)
	for c := 0; c < tw; c++ {
		for r := 0; r < aw; r++ {
			col[r] = fr.At(b.FromAzi+r, b.FromTTH+c)
		}
		tth[c] = stat.Mean(col, nil)
	}
	for r := 0; r < aw; r++ {
		row := fr.Row(b.FromAzi + r)
		azi[r] = stat.Mean(row[b.FromTTH:b.FromTTH+tw], nil)
	}
	return tth, azi
}
