package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

// Peak is the persisted boundary record of one peak.
type Peak struct {
	FromTTH   float64 `toml:"from_tth"`
	ToTTH     float64 `toml:"to_tth"`
	FromAzi   float64 `toml:"from_azi"`
	ToAzi     float64 `toml:"to_azi"`
	FromFrame int     `toml:"from_frame"`
	ToFrame   int     `toml:"to_frame"`
}

// Peaks is the peak table keyed by peak number.
type Peaks map[int]Peak

// LoadPeaks reads the peak table at path. A missing file is an empty
// table.
func LoadPeaks(path string) (Peaks, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Peaks{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read peaks: %w", err)
	}
	raw := map[string]Peak{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse peaks %s: %w", path, err)
	}
	peaks := make(Peaks, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("parse peaks %s: peak key %q is not a number", path, k)
		}
		peaks[n] = v
	}
	return peaks, nil
}

// Get returns peak n.
func (p Peaks) Get(n int) (Peak, error) {
	pk, ok := p[n]
	if !ok {
		return Peak{}, failure.New(failure.NotFound, "peak table", fmt.Sprintf("peak %d", n), nil)
	}
	return pk, nil
}

// Numbers returns the peak numbers in ascending order.
func (p Peaks) Numbers() []int {
	out := make([]int, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// SavePeaks rewrites the whole peak table at path.
func SavePeaks(path string, peaks Peaks) error {
	raw := make(map[string]Peak, len(peaks))
	for n, v := range peaks {
		raw[strconv.Itoa(n)] = v
	}
	data, err := encode(raw)
	if err != nil {
		return fmt.Errorf("encode peaks: %w", err)
	}
	return withLock(path, func() error { return writeFileAtomic(path, data) })
}

// UpdatePeak stores pk as peak n, rewriting the whole table.
func UpdatePeak(path string, n int, pk Peak) error {
	peaks, err := LoadPeaks(path)
	if err != nil {
		return err
	}
	peaks[n] = pk
	return SavePeaks(path, peaks)
}
