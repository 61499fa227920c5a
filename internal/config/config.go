package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

//go:embed sample_config.toml
var sampleConfig string

// Integration configures the external integration helper.
type Integration struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// Settings is the settings record.
type Settings struct {
	XRDPath    string `toml:"xrd_path"`
	PoniPath   string `toml:"poni_path"`
	MaskPath   string `toml:"mask_path"`
	TmpHDFPath string `toml:"tmp_hdf_path"`
	PeaksPath  string `toml:"peaks_path"`
	NptTTH     int    `toml:"npt_tth"`
	NptAzi     int    `toml:"npt_azi"`
	// Workers caps the peak reduction pool; zero picks the default.
	Workers int `toml:"workers"`

	Integration Integration `toml:"integration"`
	Logging     Logging     `toml:"logging"`

	path    string
	present map[string]bool
}

// Keys of the settings record.
const (
	KeyXRDPath    = "xrd_path"
	KeyPoniPath   = "poni_path"
	KeyMaskPath   = "mask_path"
	KeyTmpHDFPath = "tmp_hdf_path"
	KeyPeaksPath  = "peaks_path"
	KeyNptTTH     = "npt_tth"
	KeyNptAzi     = "npt_azi"
)

// Load reads the settings record at path. Relative paths inside the
// record are resolved against the record's directory.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, failure.New(failure.NotFound, "load settings", path, err)
		}
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return Parse(path, data)
}

// Parse decodes a settings record. path is used for error messages and to
// resolve relative paths; it may be empty.
func Parse(path string, data []byte) (*Settings, error) {
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	s := &Settings{path: path, present: map[string]bool{}}
	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	collectKeys("", raw, s.present)
	if path != "" {
		dir := filepath.Dir(path)
		for _, p := range []*string{&s.XRDPath, &s.PoniPath, &s.MaskPath, &s.TmpHDFPath, &s.PeaksPath, &s.Logging.File} {
			*p = resolvePath(dir, *p)
		}
	}
	return s, nil
}

func collectKeys(prefix string, m map[string]any, out map[string]bool) {
	for k, v := range m {
		key := prefix + k
		out[key] = true
		if sub, ok := v.(map[string]any); ok {
			collectKeys(key+".", sub, out)
		}
	}
}

func resolvePath(dir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return filepath.Join(dir, p)
}

// Path returns the file the settings were loaded from.
func (s *Settings) Path() string { return s.path }

// Has reports whether key was present in the record. Nested keys are
// dotted, e.g. "integration.command".
func (s *Settings) Has(key string) bool { return s.present[key] }

// Require fails with a not-found error naming every key that is missing
// or empty.
func (s *Settings) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if !s.present[k] || s.emptyValue(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return failure.Newf(failure.NotFound, "settings", strings.Join(missing, ", "), "missing from %s", s.path)
}

func (s *Settings) emptyValue(key string) bool {
	switch key {
	case KeyXRDPath:
		return s.XRDPath == ""
	case KeyPoniPath:
		return s.PoniPath == ""
	case KeyMaskPath:
		return s.MaskPath == ""
	case KeyTmpHDFPath:
		return s.TmpHDFPath == ""
	case KeyPeaksPath:
		return s.PeaksPath == ""
	case KeyNptTTH:
		return s.NptTTH <= 0
	case KeyNptAzi:
		return s.NptAzi <= 0
	}
	return false
}

// CreateSample writes the sample settings record to path, refusing to
// overwrite an existing file.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create sample config: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(sampleConfig)
	return err
}

// Set updates one key of the settings record at path and rewrites the
// file. Nested keys are dotted. The value is stored as an integer, float
// or boolean when it parses as one, and as a string otherwise.
func Set(path, key, value string) error {
	return withLock(path, func() error {
		raw := map[string]any{}
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read settings: %w", err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("parse settings %s: %w", path, err)
		}
		parts := strings.Split(key, ".")
		m := raw
		for _, p := range parts[:len(parts)-1] {
			sub, ok := m[p].(map[string]any)
			if !ok {
				sub = map[string]any{}
				m[p] = sub
			}
			m = sub
		}
		m[parts[len(parts)-1]] = parseValue(value)
		out, err := toml.Marshal(raw)
		if err != nil {
			return err
		}
		return writeFileAtomic(path, out)
	})
}

func parseValue(v string) any {
	if i, err := strconv.ParseInt(v, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}

// Entries returns the record's keys and values in key order, for display.
func (s *Settings) Entries() [][2]string {
	data, err := toml.Marshal(s)
	if err != nil {
		return nil
	}
	raw := map[string]any{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil
	}
	var out [][2]string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if sub, ok := v.(map[string]any); ok {
				walk(prefix+k+".", sub)
				continue
			}
			out = append(out, [2]string{prefix + k, fmt.Sprint(v)})
		}
	}
	walk("", raw)
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// withLock runs fn holding an exclusive lock beside path.
func withLock(path string, fn func() error) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	defer lock.Unlock()
	return fn()
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
