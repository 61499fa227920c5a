// Package store manages named datasets inside one container file.
//
// The container is an HDF5 file rooted at an "entry" group. Each call
// opens the file, does its work and closes it again, holding an advisory
// lock beside the file for the duration: shared for reads, exclusive for
// writes. Datasets can be addressed by exact path or located with a
// substring query.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/ishizawa2468/XRDSpotAnalyzer/hdf5"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/fetch"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/logging"
)

// Root is the group every container is created with.
const Root = "entry"

// Extensions lists the file extensions accepted for container files.
var Extensions = []string{".hdf5", ".hdf", ".h5", ".nxs"}

// CheckExtension fails with a format-unsupported error unless path has
// one of Extensions.
func CheckExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return nil
		}
	}
	return failure.Newf(failure.FormatUnsupported, "open", path, "supported extensions: %s", strings.Join(Extensions, ", "))
}

// Store is a container file.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	// mu orders callers within the process; readers share one file lock.
	mu      sync.RWMutex
	readers sync.Mutex
	nread   int
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open binds a Store to path, creating an empty container with a root
// "entry" group when the file does not exist.
func Open(path string, opts ...Option) (*Store, error) {
	if err := CheckExtension(path); err != nil {
		return nil, err
	}
	s := &Store{path: path, lock: flock.New(path + ".lock"), logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := s.create(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenExisting is Open for a container that must already exist.
func OpenExisting(path string, opts ...Option) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, failure.New(failure.NotFound, "open", path, err)
		}
		return nil, err
	}
	return Open(path, opts...)
}

func (s *Store) create() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := hdf5.Create(s.path)
	if err != nil {
		return err
	}
	if _, err := f.CreateGroup(Root); err != nil {
		f.Close()
		return err
	}
	s.logger.Info("container created", "path", s.path)
	return f.Close()
}

// Path returns the container file path.
func (s *Store) Path() string { return s.path }

// View runs fn with the container open for reading.
func (s *Store) View(fn func(f *hdf5.File) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.acquireShared(); err != nil {
		return err
	}
	defer s.releaseShared()
	f, err := hdf5.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

// Update runs fn with the container open for writing. Frame fetchers
// created inside fn read the file through their own handles.
func (s *Store) Update(fn func(f *hdf5.File) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", s.path, err)
	}
	defer s.lock.Unlock()
	f, err := hdf5.OpenReadWrite(s.path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func (s *Store) acquireShared() error {
	s.readers.Lock()
	defer s.readers.Unlock()
	if s.nread == 0 {
		if err := s.lock.RLock(); err != nil {
			return fmt.Errorf("lock %s: %w", s.path, err)
		}
	}
	s.nread++
	return nil
}

func (s *Store) releaseShared() {
	s.readers.Lock()
	defer s.readers.Unlock()
	if s.nread--; s.nread == 0 {
		s.lock.Unlock()
	}
}

// Exists reports whether an object is stored at p.
func (s *Store) Exists(p string) (bool, error) {
	var ok bool
	err := s.View(func(f *hdf5.File) error {
		var err error
		ok, err = f.Exists(p)
		return err
	})
	return ok, err
}

// Delete removes the dataset or group at p.
func (s *Store) Delete(p string) error {
	return s.Update(func(f *hdf5.File) error { return deleteIn(f, p) })
}

func deleteIn(f *hdf5.File, p string) error {
	if err := f.Delete(p); err != nil {
		if errors.Is(err, hdf5.ErrNotFound) {
			return failure.New(failure.NotFound, "delete", p, err)
		}
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}

// Paths lists every dataset in the container without the leading slash.
func (s *Store) Paths() ([]string, error) {
	var paths []string
	err := s.View(func(f *hdf5.File) error {
		var err error
		paths, err = f.DatasetPaths()
		return err
	})
	return paths, err
}

// Fetcher resolves query and binds a frame fetcher to the result.
func (s *Store) Fetcher(query string) (*fetch.Fetcher, error) {
	p, err := s.Resolve(query)
	if err != nil {
		return nil, err
	}
	return fetch.New(s.path, p)
}
