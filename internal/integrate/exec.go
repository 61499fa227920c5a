package integrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/logging"
)

// Names used in the exchange files.
const (
	RequestFrame   = "frame"
	RequestPoni    = "poni"
	RequestMask    = "mask"
	RequestNptRad  = "npt_rad"
	RequestNptAzi  = "npt_azi"
	RequestUnit    = "unit"
	ResultIntens   = "intensity"
	ResultRadial   = "radial"
	ResultAzimuth  = "azimuthal"
	requestFile    = "request.h5"
	resultFile     = "result.h5"
	tempDirPattern = "xrdspot-integrate-"
)

// Exec runs an external helper once per frame as
//
//	Command Args... request.h5 result.h5
//
// The request file holds the frame as a 2-D float32 dataset "frame", the
// scalars "npt_rad" and "npt_azi" and the strings "poni", "mask" and
// "unit". The helper writes "intensity", "radial" and, for 2-D requests,
// "azimuthal" to the result file.
type Exec struct {
	Command string
	Args    []string
	// Env is appended to the current environment.
	Env []string
	// Timeout bounds each run; zero means no limit.
	Timeout time.Duration
	// TempDir holds the exchange files; empty uses the system default.
	TempDir string
	Logger  *slog.Logger
}

// Integrate runs the helper for req.
func (e *Exec) Integrate(ctx context.Context, req *Request) (*Result, error) {
	if e.Command == "" {
		return nil, errors.New("no integration command configured")
	}
	logger := e.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	dir, err := os.MkdirTemp(e.TempDir, tempDirPattern)
	if err != nil {
		return nil, fmt.Errorf("create exchange directory: %w", err)
	}
	defer os.RemoveAll(dir)
	in, out := filepath.Join(dir, requestFile), filepath.Join(dir, resultFile)
	if err := writeRequest(in, req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	args := append(append([]string(nil), e.Args...), in, out)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", e.Command, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", e.Command, err)
	}
	if st, err := os.Stat(in); err == nil {
		logger.Debug("integration helper finished",
			"elapsed", time.Since(start).Round(time.Millisecond),
			"request_size", humanize.IBytes(uint64(st.Size())))
	}
	return readResult(out, req.NptAzi > 0)
}

func writeRequest(path string, req *Request) (err error) {
	f, err := hdf5.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	frame, err := f.CreateDataset(RequestFrame, hdf5.Float32, req.Frame.Shape)
	if err != nil {
		return err
	}
	if err := frame.Write(req.Frame.Data); err != nil {
		return err
	}
	for name, v := range map[string]int{RequestNptRad: req.NptRad, RequestNptAzi: req.NptAzi} {
		ds, err := f.CreateDataset(name, hdf5.Int64, nil)
		if err != nil {
			return err
		}
		if err := ds.Write([]int{v}); err != nil {
			return err
		}
	}
	for name, v := range map[string]string{RequestPoni: req.Poni, RequestMask: req.Mask, RequestUnit: req.Unit} {
		size := uint32(len(v))
		if size == 0 {
			size = 1
		}
		ds, err := f.CreateDataset(name, hdf5.String(size), nil)
		if err != nil {
			return err
		}
		if err := ds.Write([]string{v}); err != nil {
			return err
		}
	}
	return nil
}

func readResult(path string, twoD bool) (*Result, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read result: %w", err)
	}
	defer f.Close()
	read := func(name string) ([]float64, error) {
		ds, err := f.OpenDataset(name)
		if err != nil {
			return nil, fmt.Errorf("read result: %w", err)
		}
		return ds.ReadFloat64()
	}
	res := &Result{}
	if res.Intensity, err = read(ResultIntens); err != nil {
		return nil, err
	}
	if res.Radial, err = read(ResultRadial); err != nil {
		return nil, err
	}
	if twoD {
		if res.Azimuthal, err = read(ResultAzimuth); err != nil {
			return nil, err
		}
	}
	return res, nil
}
