package store

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tmp.hdf5"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func mustWrite(t *testing.T, s *Store, p string, v any) {
	t.Helper()
	ok, err := s.Write(p, v, true)
	if err != nil || !ok {
		t.Fatalf("Write(%s) = %v, %v", p, ok, err)
	}
}

func TestOpenCreatesEntryGroup(t *testing.T) {
	s := newStore(t)
	ok, err := s.Exists(Root)
	if err != nil || !ok {
		t.Errorf("Exists(entry) = %v, %v", ok, err)
	}
	paths, err := s.Paths()
	if err != nil || len(paths) != 0 {
		t.Errorf("Paths = %v, %v", paths, err)
	}
}

func TestOpenRejectsExtension(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "data.txt"))
	if !errors.Is(err, failure.ErrFormatUnsupported) {
		t.Errorf("err = %v, want format unsupported", err)
	}
	if _, err := OpenExisting(filepath.Join(t.TempDir(), "none.h5")); !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("OpenExisting err = %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	s := newStore(t)
	tests := []struct {
		path  string
		value any
		want  any
	}{
		{"entry/params/frame_num", 250, 250.0},
		{"entry/params/fps", float32(12.5), 12.5},
		{"entry/params/npt_tth", uint16(1000), 1000.0},
		{"entry/meta/source", "run_0042.nxs", "run_0042.nxs"},
		{"entry/arr/frame", []int{0, 1, 2}, NewArray([]uint64{3}, []float64{0, 1, 2})},
		{"entry/arr/tth", []float64{1.5, 2.5}, NewArray([]uint64{2}, []float64{1.5, 2.5})},
		{"entry/arr/azi", []float32{-180, 180}, NewArray([]uint64{2}, []float64{-180, 180})},
		{"entry/meta/names", []string{"a", "bcd"}, []string{"a", "bcd"}},
		{"entry/grid", NewArray([]uint64{2, 2}, []float64{1, 2, 3, 4}), NewArray([]uint64{2, 2}, []float64{1, 2, 3, 4})},
	}
	for _, tt := range tests {
		mustWrite(t, s, tt.path, tt.value)
		got, err := s.ReadValue(tt.path)
		if err != nil {
			t.Errorf("ReadValue(%s): %v", tt.path, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ReadValue(%s) = %#v, want %#v", tt.path, got, tt.want)
		}
	}
}

func TestWriteWithoutOverwriteIsNoop(t *testing.T) {
	s := newStore(t)
	mustWrite(t, s, "entry/params/npt_tth", 1000)
	ok, err := s.Write("entry/params/npt_tth", 2000, false)
	if err != nil || ok {
		t.Fatalf("Write = %v, %v; want no-op", ok, err)
	}
	v, err := s.Find("npt_tth")
	if err != nil || v != 1000.0 {
		t.Errorf("value = %v, %v; want 1000", v, err)
	}

	ok, err = s.Write("entry/params/npt_tth", []float64{1, 2, 3}, true)
	if err != nil || !ok {
		t.Fatalf("overwrite = %v, %v", ok, err)
	}
	a, err := s.Read("entry/params/npt_tth")
	if err != nil || !reflect.DeepEqual(a.Shape, []uint64{3}) {
		t.Errorf("after overwrite: %v, %v", a, err)
	}
}

func TestEmptyArray(t *testing.T) {
	s := newStore(t)
	mustWrite(t, s, "entry/empty", []float64{})
	a, err := s.Read("entry/empty")
	if err != nil || a.Len() != 0 || !reflect.DeepEqual(a.Shape, []uint64{0}) {
		t.Errorf("Read = %+v, %v", a, err)
	}
}

func TestWriteTypeMismatch(t *testing.T) {
	s := newStore(t)
	for _, v := range []any{true, map[string]int{}, nil, NewArray([]uint64{3}, []float64{1})} {
		_, err := s.Write("entry/bad", v, true)
		if !errors.Is(err, failure.ErrTypeMismatch) {
			t.Errorf("Write(%T) err = %v, want type mismatch", v, err)
		}
	}
	if ok, _ := s.Exists("entry/bad"); ok {
		t.Error("failed write left a dataset behind")
	}
}

func TestTable(t *testing.T) {
	s := newStore(t)
	tbl := &Table{Columns: []string{"tth", "intensity"}, Values: [][]float64{{10, 11}, {5, 7}}}
	mustWrite(t, s, "entry/table", tbl)
	got, err := s.ReadTable("entry/table")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, tbl) {
		t.Errorf("ReadTable = %+v", got)
	}
	bad := Table{Columns: []string{"a", "b"}, Values: [][]float64{{1}, {1, 2}}}
	if _, err := s.Write("entry/bad", bad, true); !errors.Is(err, failure.ErrTypeMismatch) {
		t.Errorf("ragged table err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	mustWrite(t, s, "entry/params/fps", 10.0)
	if err := s.Delete("entry/params/fps"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	err := s.Delete("entry/params/fps")
	if !errors.Is(err, failure.ErrNotFound) {
		t.Fatalf("second Delete err = %v, want not found", err)
	}
	var fe *failure.Error
	if !errors.As(err, &fe) || fe.Subject != "entry/params/fps" {
		t.Errorf("err = %v, want subject entry/params/fps", err)
	}
}

func TestResolve(t *testing.T) {
	s := newStore(t)
	for _, p := range []string{"entry/arr/tth", "entry/arr/azi", "entry/pattern", "entry/peak/1/tth", "entry/peak/1/azi"} {
		mustWrite(t, s, p, []float64{0})
	}

	got, err := s.Resolve("pattern")
	if err != nil || got != "entry/pattern" {
		t.Errorf("Resolve(pattern) = %q, %v", got, err)
	}
	got, err = s.Resolve("peak/1/tth")
	if err != nil || got != "entry/peak/1/tth" {
		t.Errorf("Resolve(peak/1/tth) = %q, %v", got, err)
	}

	_, err = s.Resolve("cake")
	if !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("Resolve(cake) err = %v, want not found", err)
	}

	_, err = s.Resolve("tth")
	if !errors.Is(err, failure.ErrAmbiguous) {
		t.Fatalf("Resolve(tth) err = %v, want ambiguous", err)
	}
	want := []string{"entry/arr/tth", "entry/peak/1/tth"}
	if got := failure.Candidates(err); !reflect.DeepEqual(got, want) {
		t.Errorf("candidates = %v, want %v", got, want)
	}

	all, err := s.ResolveAll("azi")
	if err != nil || !reflect.DeepEqual(all, []string{"entry/arr/azi", "entry/peak/1/azi"}) {
		t.Errorf("ResolveAll(azi) = %v, %v", all, err)
	}
}

func TestMatchStripsLeadingSlash(t *testing.T) {
	got := Match([]string{"/entry/cake", "entry/pattern"}, "cake")
	if !reflect.DeepEqual(got, []string{"entry/cake"}) {
		t.Errorf("Match = %v", got)
	}
}

func TestReadRows(t *testing.T) {
	s := newStore(t)
	mustWrite(t, s, "entry/pattern", NewArray([]uint64{4, 2}, []float64{0, 1, 10, 11, 20, 21, 30, 31}))
	a, err := s.ReadRows("entry/pattern", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Shape, []uint64{2, 2}) || !reflect.DeepEqual(a.Data, []float64{10, 11, 20, 21}) {
		t.Errorf("ReadRows = %+v", a)
	}
	a, err = s.ReadRows("entry/pattern", 3, 99)
	if err != nil || len(a.Data) != 2 {
		t.Errorf("clamped ReadRows = %+v, %v", a, err)
	}
}

func TestRecreateReplacesShape(t *testing.T) {
	s := newStore(t)
	for _, n := range []uint64{10, 4} {
		err := s.Update(func(f *hdf5.File) error {
			ds, err := Recreate(f, "entry/pattern", hdf5.Float32, []uint64{5, n})
			if err != nil {
				return err
			}
			return ds.WriteValues(0, make([]float64, n))
		})
		if err != nil {
			t.Fatalf("Recreate(%d): %v", n, err)
		}
	}
	a, err := s.Read("entry/pattern")
	if err != nil || !reflect.DeepEqual(a.Shape, []uint64{5, 4}) {
		t.Errorf("shape = %v, %v", a.Shape, err)
	}
}

func TestFetcherAndContents(t *testing.T) {
	s := newStore(t)
	mustWrite(t, s, "entry/cake", NewArray([]uint64{2, 1, 3}, []float64{1, 2, 3, 4, 5, 6}))
	mustWrite(t, s, "entry/params/npt_azi", 1)
	ft, err := s.Fetcher("cake")
	if err != nil {
		t.Fatal(err)
	}
	fr, err := ft.Fetch(1)
	if err != nil || !reflect.DeepEqual(fr.Data, []float64{4, 5, 6}) {
		t.Errorf("Fetch(1) = %v, %v", fr, err)
	}

	entries, err := s.Contents(2)
	if err != nil {
		t.Fatal(err)
	}
	byPath := map[string]Entry{}
	for _, e := range entries {
		byPath[e.Path] = e
	}
	cake := byPath["/entry/cake"]
	if cake.Dtype != "<f8" || cake.Bytes != 48 || !reflect.DeepEqual(cake.Preview, []string{"1", "2"}) {
		t.Errorf("cake entry = %+v", cake)
	}
	if !byPath["/entry/params"].Group {
		t.Error("params not listed as group")
	}
	if got := byPath["/entry/params/npt_azi"].Preview; !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("scalar preview = %v", got)
	}
}

func TestLockFileBesideContainer(t *testing.T) {
	s := newStore(t)
	if _, err := os.Stat(s.Path() + ".lock"); err != nil {
		t.Errorf("lock file: %v", err)
	}
}
