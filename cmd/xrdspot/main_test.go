package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/integrate"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("xrdspot %s: %v", strings.Join(args, " "), err)
	}
	return out
}

// TestHelperProcess stands in for the integration helper. Every pixel of
// source frame i holds i, so the pattern of frame i is i in every bin and
// its cake is i plus the 2theta bin index.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("XRDSPOT_WANT_HELPER") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: -- request.h5 result.h5")
		os.Exit(2)
	}
	if err := answer(args[1], args[2]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func answer(in, out string) error {
	req, err := hdf5.Open(in)
	if err != nil {
		return err
	}
	defer req.Close()
	read := func(name string) ([]float64, error) {
		ds, err := req.OpenDataset(name)
		if err != nil {
			return nil, err
		}
		return ds.ReadFloat64()
	}
	px, err := read(integrate.RequestFrame)
	if err != nil {
		return err
	}
	nrad, err := read(integrate.RequestNptRad)
	if err != nil {
		return err
	}
	nazi, err := read(integrate.RequestNptAzi)
	if err != nil {
		return err
	}
	level := px[0]
	n, m := int(nrad[0]), int(nazi[0])

	res, err := hdf5.Create(out)
	if err != nil {
		return err
	}
	write := func(name string, vals []float64) error {
		ds, err := res.CreateDataset(name, hdf5.Float32, []uint64{uint64(len(vals))})
		if err != nil {
			return err
		}
		return ds.Write(vals)
	}
	rad := make([]float64, n)
	for i := range rad {
		rad[i] = float64(i)
	}
	intensity := make([]float64, n)
	for i := range intensity {
		intensity[i] = level
	}
	if m > 0 {
		azi := make([]float64, m)
		for i := range azi {
			azi[i] = -180 + 360*float64(i)/float64(m)
		}
		if err := write(integrate.ResultAzimuth, azi); err != nil {
			return err
		}
		intensity = make([]float64, n*m)
		for i := range intensity {
			intensity[i] = level + float64(i%n)
		}
	}
	if err := write(integrate.ResultRadial, rad); err != nil {
		return err
	}
	if err := write(integrate.ResultIntens, intensity); err != nil {
		return err
	}
	return res.Close()
}

type workspace struct {
	dir    string
	config string
	tmp    string
}

func setupWorkspace(t *testing.T, frames uint64) *workspace {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "run.h5")
	f, err := hdf5.Create(src)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := f.CreateDataset("entry/data", hdf5.Float32, []uint64{frames, 3, 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < frames; i++ {
		row := make([]float64, 9)
		for j := range row {
			row[j] = float64(i)
		}
		if err := ds.WriteValues(i, row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	poni := filepath.Join(dir, "geometry.poni")
	if err := os.WriteFile(poni, []byte("Distance: 0.2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &workspace{dir: dir, config: filepath.Join(dir, "xrdspot.toml"), tmp: filepath.Join(dir, "tmp.hdf5")}
	settings := fmt.Sprintf(`xrd_path = %q
poni_path = %q
tmp_hdf_path = %q
peaks_path = "peaks.toml"
npt_tth = 6
npt_azi = 4
workers = 2

[integration]
command = %q
args = ["-test.run=TestHelperProcess", "--"]

[logging]
level = "debug"
format = "json"
`, src, poni, w.tmp, os.Args[0])
	if err := os.WriteFile(w.config, []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XRDSPOT_WANT_HELPER", "1")
	return w
}

func TestConfigCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	out := mustRun(t, "config", "init", "-c", path)
	if !strings.Contains(out, path) {
		t.Errorf("init output = %q", out)
	}
	if _, err := runCLI(t, "config", "init", "-c", path); err == nil {
		t.Error("second init should refuse to overwrite")
	}
	mustRun(t, "config", "init", "-c", path, "--overwrite")

	mustRun(t, "config", "set", "-c", path, "npt_tth", "2048")
	mustRun(t, "config", "set", "-c", path, "integration.timeout_seconds", "60")
	out = mustRun(t, "config", "show", "-c", path)
	for _, want := range []string{"npt_tth", "2048", "integration.timeout_seconds", "60"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output lacks %q:\n%s", want, out)
		}
	}
}

func TestMissingSettings(t *testing.T) {
	_, err := runCLI(t, "process", "-c", filepath.Join(t.TempDir(), "none.toml"))
	if !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}

	path := filepath.Join(t.TempDir(), "xrdspot.toml")
	if err := os.WriteFile(path, []byte("npt_tth = 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = runCLI(t, "process", "-c", path)
	if !errors.Is(err, failure.ErrNotFound) || !strings.Contains(err.Error(), "xrd_path") {
		t.Errorf("err = %v, want missing xrd_path", err)
	}
}

func TestPipeline(t *testing.T) {
	w := setupWorkspace(t, 3)
	c := []string{"-c", w.config}

	out := mustRun(t, append([]string{"process"}, c...)...)
	if !strings.Contains(out, "Processed 3 frames") {
		t.Errorf("process output = %q", out)
	}

	out = mustRun(t, append([]string{"find", "pattern"}, c...)...)
	if !strings.Contains(out, "array(3, 6)") {
		t.Errorf("find pattern = %q", out)
	}
	if _, err := runCLI(t, append([]string{"find", "arr"}, c...)...); !errors.Is(err, failure.ErrAmbiguous) {
		t.Errorf("find arr err = %v, want ambiguous", err)
	}
	out = mustRun(t, append([]string{"find", "arr", "--all"}, c...)...)
	if got := len(strings.Fields(out)); got != 3 {
		t.Errorf("find --all arr listed %d paths:\n%s", got, out)
	}

	mustRun(t, append([]string{"peak", "set", "1", "--from-tth", "1", "--to-tth", "4",
		"--from-azi", "-180", "--to-azi", "90"}, c...)...)
	mustRun(t, append([]string{"peak", "set", "1", "--to-frame", "2"}, c...)...)
	out = mustRun(t, append([]string{"peak", "show"}, c...)...)
	if !strings.Contains(out, "-180") {
		t.Errorf("peak show kept no azimuth edge:\n%s", out)
	}

	out = mustRun(t, append([]string{"peak", "reduce", "1"}, c...)...)
	if !strings.Contains(out, "tth[1:4] azi[0:3]") || !strings.Contains(out, "3 frames") {
		t.Errorf("peak reduce output = %q", out)
	}

	st, err := store.OpenExisting(w.tmp)
	if err != nil {
		t.Fatal(err)
	}
	tth, err := st.Read(store.PeakTTHPath(1))
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 2, 3, 2, 3, 4, 3, 4, 5}
	if !reflect.DeepEqual(tth.Shape, []uint64{3, 3}) || !reflect.DeepEqual(tth.Data, want) {
		t.Errorf("peak tth series = %v %v, want (3, 3) %v", tth.Shape, tth.Data, want)
	}
	azi, err := st.Read(store.PeakAziPath(1))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(azi.Shape, []uint64{3, 3}) || azi.Data[0] != 2 || azi.Data[8] != 4 {
		t.Errorf("peak azi series = %v %v", azi.Shape, azi.Data)
	}

	out = mustRun(t, "inspect", w.tmp)
	for _, p := range []string{"/entry/cake", "/entry/params/frame_num", "/entry/peak/1/tth"} {
		if !strings.Contains(out, p) {
			t.Errorf("inspect output lacks %s", p)
		}
	}

	for _, args := range [][]string{
		{"plot", "pattern", "-o", filepath.Join(w.dir, "pattern.png")},
		{"plot", "pattern", "--frame", "1", "-o", filepath.Join(w.dir, "frame1.png")},
		{"plot", "cake", "2", "-o", filepath.Join(w.dir, "cake.png")},
		{"plot", "peak", "1", "--axis", "azi", "-o", filepath.Join(w.dir, "peak.png")},
	} {
		mustRun(t, append(args, c...)...)
		if st, err := os.Stat(args[len(args)-1]); err != nil || st.Size() == 0 {
			t.Errorf("%s: image not written: %v", args[1], err)
		}
	}
	if _, err := runCLI(t, append([]string{"plot", "cake", "3"}, c...)...); !errors.Is(err, failure.ErrOutOfRange) {
		t.Errorf("plot cake 3 err = %v, want out of range", err)
	}

	mustRun(t, append([]string{"delete", store.PeakGroup(1)}, c...)...)
	if _, err := runCLI(t, append([]string{"find", "peak/1/tth"}, c...)...); !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("find after delete err = %v, want not found", err)
	}
}

func TestProcessIntegrationFailure(t *testing.T) {
	w := setupWorkspace(t, 2)
	t.Setenv("XRDSPOT_WANT_HELPER", "0")
	_, err := runCLI(t, "process", "-c", w.config)
	if !errors.Is(err, failure.ErrIntegrationFailure) || !strings.Contains(err.Error(), "frame 0") {
		t.Errorf("err = %v, want integration failure on frame 0", err)
	}
}
