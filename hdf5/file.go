package hdf5

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/alloc"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/object"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/superblock"
)

// File is an open HDF5 file. Reads and row writes may run concurrently;
// structural edits are serialized internally.
type File struct {
	path   string
	file   *os.File
	reader *binary.Reader
	sb     *superblock.Superblock

	writable  bool
	allocator *alloc.Allocator
	size      int64

	mu     sync.Mutex
	closed bool
}

// Open opens an HDF5 file for reading.
func Open(path string) (*File, error) {
	osf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f, err := load(path, osf)
	if err != nil {
		osf.Close()
		return nil, err
	}
	return f, nil
}

// OpenReadWrite opens an existing file for reading and editing. Only files
// with a version 2 or 3 superblock can be edited.
func OpenReadWrite(path string) (*File, error) {
	osf, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	f, err := load(path, osf)
	if err != nil {
		osf.Close()
		return nil, err
	}
	if !f.sb.Writable() {
		osf.Close()
		return nil, fmt.Errorf("%w: superblock version %d", ErrReadOnlyFormat, f.sb.Version)
	}
	st, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, err
	}
	f.writable = true
	f.size = st.Size()
	f.allocator = alloc.New(f.sb.EOFAddress)
	return f, nil
}

func load(path string, osf *os.File) (*File, error) {
	sb, err := superblock.Read(osf)
	if err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	f := &File{
		path:   path,
		file:   osf,
		sb:     sb,
		reader: binary.NewReader(osf, sb.Sizes()),
	}
	if _, err := object.Read(f.reader, sb.RootAddress); err != nil {
		return nil, fmt.Errorf("opening root group: %w", err)
	}
	return f, nil
}

// Create creates or truncates path and writes an empty root group.
func Create(path string) (*File, error) {
	osf, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	sb := superblock.New()
	root := object.Encode(sb.Sizes(), object.GroupMessages(nil), object.GroupSlack)
	sb.RootAddress = uint64(sb.Size())
	sb.EOFAddress = sb.RootAddress + uint64(len(root))

	f := &File{
		path:      path,
		file:      osf,
		sb:        sb,
		reader:    binary.NewReader(osf, sb.Sizes()),
		writable:  true,
		allocator: alloc.New(sb.EOFAddress),
	}
	if err := f.writeAt(root, sb.RootAddress); err != nil {
		osf.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Flush(); err != nil {
		osf.Close()
		os.Remove(path)
		return nil, err
	}
	return f, nil
}

// Close flushes a writable file and releases it.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	var flushErr error
	if f.writable {
		flushErr = f.flushLocked()
		if flushErr == nil && f.size > int64(f.allocator.EOF()) {
			flushErr = f.file.Truncate(int64(f.allocator.EOF()))
		}
	}
	return errors.Join(flushErr, f.file.Close())
}

// Flush rewrites the superblock with the current end of file and syncs.
func (f *File) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

func (f *File) flushLocked() error {
	if !f.writable {
		return nil
	}
	f.sb.EOFAddress = f.allocator.EOF()
	if err := f.writeAt(f.sb.Encode(), uint64(f.sb.Offset)); err != nil {
		return fmt.Errorf("writing superblock: %w", err)
	}
	return f.file.Sync()
}

// Path returns the file system path the file was opened with.
func (f *File) Path() string { return f.path }

// Version returns the superblock version.
func (f *File) Version() int { return int(f.sb.Version) }

// Writable reports whether the file was opened for editing.
func (f *File) Writable() bool { return f.writable }

// AllocStats reports space allocation counters for an editable file.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

// Root returns the root group.
func (f *File) Root() (*Group, error) {
	return f.OpenGroup("/")
}

// OpenGroup opens the group at p.
func (f *File) OpenGroup(p string) (*Group, error) {
	if f.closed {
		return nil, ErrClosed
	}
	hops, h, err := f.locate(p)
	if err != nil {
		return nil, err
	}
	if h.IsDataset() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, p)
	}
	return &Group{file: f, path: hopsPath(hops), addr: h.Address, header: h}, nil
}

// OpenDataset opens the dataset at p.
func (f *File) OpenDataset(p string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	hops, h, err := f.locate(p)
	if err != nil {
		return nil, err
	}
	if !h.IsDataset() {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, p)
	}
	return newDataset(f, hopsPath(hops), h)
}

// Exists reports whether an object is reachable at p.
func (f *File) Exists(p string) (bool, error) {
	if f.closed {
		return false, ErrClosed
	}
	_, _, err := f.locate(p)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (f *File) header(addr uint64) (*object.Header, error) {
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	return h, nil
}

func (f *File) sizes() binary.Sizes { return f.sb.Sizes() }

func (f *File) writeAt(b []byte, addr uint64) error {
	if _, err := f.file.WriteAt(b, int64(addr)); err != nil {
		return err
	}
	if end := int64(addr) + int64(len(b)); end > f.size {
		f.size = end
	}
	return nil
}

// reserve allocates size bytes and makes sure the file covers them, so
// reserved but unwritten storage reads back as zeros.
func (f *File) reserve(size uint64) (uint64, error) {
	addr := f.allocator.AllocAligned(size, 8)
	if eof := int64(f.allocator.EOF()); eof > f.size {
		if err := f.file.Truncate(eof); err != nil {
			return 0, fmt.Errorf("extending file: %w", err)
		}
		f.size = eof
	}
	return addr, nil
}

// linksOf lists the links stored in a group header, whichever storage the
// group uses.
func (f *File) linksOf(h *object.Header) ([]*message.Link, error) {
	if st, ok := h.Find(message.TypeSymbolTable).(*message.SymbolTable); ok {
		return f.symbolLinks(st)
	}
	if li, ok := h.Find(message.TypeLinkInfo).(*message.LinkInfo); ok && li.Dense(f.sizes()) {
		return nil, fmt.Errorf("%w: dense link storage", ErrUnsupported)
	}
	return h.Links(), nil
}
