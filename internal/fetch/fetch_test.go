package fetch

import (
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

// writeCube creates a (frames, rows, cols) float32 dataset where element
// (f, r, c) holds f*100 + r*10 + c.
func writeCube(t *testing.T, frames, rows, cols uint64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cube.h5")
	f, err := hdf5.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	ds, err := f.CreateDataset("entry/cake", hdf5.Float32, []uint64{frames, rows, cols})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < frames; i++ {
		row := make([]float64, 0, rows*cols)
		for r := uint64(0); r < rows; r++ {
			for c := uint64(0); c < cols; c++ {
				row = append(row, float64(i*100+r*10+c))
			}
		}
		if err := ds.WriteValues(i, row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFetch(t *testing.T) {
	path := writeCube(t, 10, 3, 4)
	ft, err := New(path, "entry/cake")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !reflect.DeepEqual(ft.Shape(), []uint64{10, 3, 4}) || ft.Len() != 10 {
		t.Errorf("Shape = %v", ft.Shape())
	}

	fr, err := ft.Fetch(9)
	if err != nil {
		t.Fatalf("Fetch(9): %v", err)
	}
	if len(fr.Data) != 12 || fr.Rows() != 3 || fr.Cols() != 4 {
		t.Fatalf("frame shape %v with %d values", fr.Shape, len(fr.Data))
	}
	if fr.At(2, 3) != 923 {
		t.Errorf("At(2,3) = %v", fr.At(2, 3))
	}
	if !reflect.DeepEqual(fr.Row(1), []float64{910, 911, 912, 913}) {
		t.Errorf("Row(1) = %v", fr.Row(1))
	}

	for _, i := range []int{10, -1} {
		if _, err := ft.Fetch(i); !errors.Is(err, failure.ErrOutOfRange) {
			t.Errorf("Fetch(%d) err = %v, want out of range", i, err)
		}
	}
}

func TestFetchNotInitialized(t *testing.T) {
	ft, err := New("unused.h5", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ft.Fetch(0); !errors.Is(err, failure.ErrNotInitialized) {
		t.Errorf("err = %v, want not initialized", err)
	}
}

func TestFetchMissingDataset(t *testing.T) {
	path := writeCube(t, 1, 1, 1)
	if _, err := New(path, "entry/pattern"); !errors.Is(err, failure.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestConcurrentFetch(t *testing.T) {
	path := writeCube(t, 8, 2, 2)
	ft, err := New(path, "/entry/cake")
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make([]error, ft.Len())
	for i := 0; i < ft.Len(); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fr, err := ft.Fetch(i)
			if err == nil && fr.At(0, 0) != float64(i*100) {
				err = errors.New("wrong frame")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("frame %d: %v", i, err)
		}
	}
}
