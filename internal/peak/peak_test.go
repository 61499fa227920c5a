package peak

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
	"testing"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/config"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/store"
)

func TestNearestBin(t *testing.T) {
	coords := []float64{0, 1, 2, 3, 4, 5}
	tests := []struct {
		v    float64
		want int
	}{
		{2.6, 3},
		{3.0, 3},
		{2.5, 2},
		{-10, 0},
		{99, 5},
	}
	for _, tt := range tests {
		got, err := NearestBin(coords, tt.v)
		if err != nil || got != tt.want {
			t.Errorf("NearestBin(%v) = %d, %v; want %d", tt.v, got, err, tt.want)
		}
	}
	if _, err := NearestBin(nil, 1); !errors.Is(err, failure.ErrNotInitialized) {
		t.Errorf("empty coords err = %v", err)
	}
}

func TestPoolSize(t *testing.T) {
	for cpus, want := range map[int]int{0: 1, 1: 1, 2: 1, 3: 1, 4: 2, 10: 8, 64: 8} {
		if got := PoolSize(cpus); got != want {
			t.Errorf("PoolSize(%d) = %d, want %d", cpus, got, want)
		}
	}
}

func TestBoundsAndRecord(t *testing.T) {
	rec := config.Peak{FromTTH: 9.04, ToTTH: 9.96, FromAzi: -58, ToAzi: 61, FromFrame: 2, ToFrame: 40}
	d := FromRecord(1, rec)
	if d.Record() != rec || d.Number != 1 {
		t.Errorf("record round trip = %+v", d)
	}
	tth := []float64{8.8, 9.0, 9.2, 9.4, 9.6, 9.8, 10.0}
	azi := []float64{-90, -60, -30, 0, 30, 60, 90}
	b, err := d.Bounds(tth, azi)
	if err != nil {
		t.Fatal(err)
	}
	want := Bounds{FromTTH: 1, ToTTH: 6, FromAzi: 1, ToAzi: 5}
	if b != want {
		t.Errorf("Bounds = %v, want %v", b, want)
	}
	if b.TTHWidth() != 5 || b.AziWidth() != 4 {
		t.Errorf("widths = %d, %d", b.TTHWidth(), b.AziWidth())
	}
	if (Bounds{FromTTH: 4, ToTTH: 2}).TTHWidth() != 0 {
		t.Error("reversed window should have zero width")
	}
}

// cakeValue is the synthetic cake used below.
func cakeValue(f, r, c int) float64 { return float64(f*100 + r*10 + c) }

func synthFrame(f int) *fetch.Frame {
	fr := &fetch.Frame{Shape: []uint64{6, 6}}
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			fr.Data = append(fr.Data, cakeValue(f, r, c))
		}
	}
	return fr
}

func TestWindow(t *testing.T) {
	fr := synthFrame(2)
	tth, azi := Window(fr, Bounds{FromTTH: 0, ToTTH: 6, FromAzi: 1, ToAzi: 3})
	if len(tth) != 6 || len(azi) != 2 {
		t.Fatalf("widths %d, %d", len(tth), len(azi))
	}
	for c := range tth {
		want := (cakeValue(2, 1, c) + cakeValue(2, 2, c)) / 2
		if tth[c] != want {
			t.Errorf("tth[%d] = %v, want %v", c, tth[c], want)
		}
	}
	for r := range azi {
		var sum float64
		for c := 0; c < 6; c++ {
			sum += cakeValue(2, r+1, c)
		}
		if azi[r] != sum/6 {
			t.Errorf("azi[%d] = %v, want %v", r, azi[r], sum/6)
		}
	}

	tth, azi = Window(fr, Bounds{FromTTH: 3, ToTTH: 3, FromAzi: 0, ToAzi: 2})
	if len(tth) != 0 || len(azi) != 2 || !math.IsNaN(azi[0]) {
		t.Errorf("degenerate window = %v, %v", tth, azi)
	}
}

func newCakeStore(t *testing.T, frames int) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tmp.hdf5"))
	if err != nil {
		t.Fatal(err)
	}
	var data []float64
	for f := 0; f < frames; f++ {
		data = append(data, synthFrame(f).Data...)
	}
	coords := []float64{0, 1, 2, 3, 4, 5}
	for p, v := range map[string]any{
		store.TTHArrPath: coords,
		store.AziArrPath: coords,
		store.CakePath:   store.NewArray([]uint64{uint64(frames), 6, 6}, data),
	} {
		if _, err := st.Write(p, v, true); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func TestReduce(t *testing.T) {
	st := newCakeStore(t, 4)
	var mu sync.Mutex
	var done []int
	r := NewReducer(st, Options{Workers: 3, Progress: func(d, total int) {
		mu.Lock()
		defer mu.Unlock()
		if total != 4 {
			t.Errorf("total = %d", total)
		}
		done = append(done, d)
	}})
	d := Definition{Number: 1, FromTTH: 0, ToTTH: 5.2, FromAzi: 0.9, ToAzi: 2.6}
	res, err := r.Reduce(context.Background(), d, 4)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if res.Bounds != (Bounds{FromTTH: 0, ToTTH: 5, FromAzi: 1, ToAzi: 3}) {
		t.Errorf("bounds = %v", res.Bounds)
	}

	tth, err := st.Read(res.TTHPath)
	if err != nil {
		t.Fatal(err)
	}
	azi, err := st.Read(res.AziPath)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tth.Shape, []uint64{4, 5}) || !reflect.DeepEqual(azi.Shape, []uint64{4, 2}) {
		t.Fatalf("shapes %v, %v", tth.Shape, azi.Shape)
	}
	for f := 0; f < 4; f++ {
		wantTTH, wantAzi := Window(synthFrame(f), res.Bounds)
		if got := tth.Data[f*5 : f*5+5]; !reflect.DeepEqual(got, wantTTH) {
			t.Errorf("frame %d tth = %v, want %v", f, got, wantTTH)
		}
		if got := azi.Data[f*2 : f*2+2]; !reflect.DeepEqual(got, wantAzi) {
			t.Errorf("frame %d azi = %v, want %v", f, got, wantAzi)
		}
	}
	sort.Ints(done)
	if !reflect.DeepEqual(done, []int{1, 2, 3, 4}) {
		t.Errorf("progress = %v", done)
	}
}

func TestReduceReplacesAndDegenerate(t *testing.T) {
	st := newCakeStore(t, 4)
	r := NewReducer(st, Options{})
	ctx := context.Background()
	if _, err := r.Reduce(ctx, Definition{Number: 2, FromTTH: 0, ToTTH: 5, FromAzi: 0, ToAzi: 5}, 4); err != nil {
		t.Fatal(err)
	}
	res, err := r.Reduce(ctx, Definition{Number: 2, FromTTH: 3, ToTTH: 3.1, FromAzi: 1, ToAzi: 4}, 4)
	if err != nil {
		t.Fatalf("degenerate window: %v", err)
	}
	tth, err := st.Read(res.TTHPath)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tth.Shape, []uint64{4, 0}) || tth.Len() != 0 {
		t.Errorf("tth = %+v, want zero width", tth)
	}
	azi, err := st.Read(res.AziPath)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(azi.Shape, []uint64{4, 3}) || !math.IsNaN(azi.Data[0]) {
		t.Errorf("azi = %+v", azi)
	}
}

func TestReduceErrors(t *testing.T) {
	st := newCakeStore(t, 2)
	r := NewReducer(st, Options{Workers: 1})
	_, err := r.Reduce(context.Background(), Definition{Number: 1, ToTTH: 2, ToAzi: 2}, 3)
	if !errors.Is(err, failure.ErrOutOfRange) {
		t.Errorf("too many frames: err = %v", err)
	}

	empty, err := store.Open(filepath.Join(t.TempDir(), "empty.h5"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewReducer(empty, Options{}).Reduce(context.Background(), Definition{Number: 1}, 1)
	if !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("missing arrays: err = %v", err)
	}
}
