package hdf5

import (
	"fmt"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/binary"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/object"
)

func (f *File) checkWritable() error {
	switch {
	case f.closed:
		return ErrClosed
	case !f.writable:
		return ErrReadOnly
	}
	return nil
}

// CreateGroup creates the group at p along with any missing parents.
// Existing groups on the way are reused.
func (f *File) CreateGroup(p string) (*Group, error) {
	f.mu.Lock()
	err := f.checkWritable()
	if err == nil {
		_, err = f.ensureGroup(CleanPath(p))
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.OpenGroup(p)
}

// ensureGroup returns the resolved hops to the group at p, creating it and
// its parents as needed.
func (f *File) ensureGroup(p string) ([]hop, error) {
	hops, h, err := f.locate(p)
	if err == nil {
		if h.IsDataset() {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, p)
		}
		return hops, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	parent, name, err := splitParent(p)
	if err != nil {
		return nil, err
	}
	if _, err := f.ensureGroup(parent); err != nil {
		return nil, err
	}
	buf := object.Encode(f.sizes(), object.GroupMessages(nil), object.GroupSlack)
	addr, err := f.reserve(uint64(len(buf)))
	if err != nil {
		return nil, err
	}
	if err := f.writeAt(buf, addr); err != nil {
		return nil, err
	}
	if err := f.addLink(parent, message.NewHardLink(name, addr)); err != nil {
		f.allocator.Free(addr, uint64(len(buf)))
		return nil, err
	}
	hops, _, err = f.locate(p)
	return hops, err
}

// CreateDataset creates a dataset of the given type and shape at p,
// creating missing parent groups. Contiguous storage for every element is
// reserved up front and reads as zeros until written. An empty dims
// creates a scalar.
func (f *File) CreateDataset(p string, dt *message.Datatype, dims []uint64) (*Dataset, error) {
	f.mu.Lock()
	err := f.checkWritable()
	if err == nil {
		err = f.createDataset(CleanPath(p), dt, dims)
	}
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.OpenDataset(p)
}

func (f *File) createDataset(p string, dt *message.Datatype, dims []uint64) error {
	parent, name, err := splitParent(p)
	if err != nil {
		return err
	}
	if _, err := f.ensureGroup(parent); err != nil {
		return err
	}
	space := message.NewDataspace(dims...)
	size := space.NumElements() * uint64(dt.Size)

	storage := message.NewContiguous(binary.Undefined(f.sizes().OffsetSize), 0)
	if size > 0 {
		addr, err := f.reserve(size)
		if err != nil {
			return err
		}
		storage = message.NewContiguous(addr, size)
	}
	buf := object.Encode(f.sizes(), object.DatasetMessages(space, dt, storage), 0)
	addr, err := f.reserve(uint64(len(buf)))
	if err != nil {
		return err
	}
	if err := f.writeAt(buf, addr); err != nil {
		return err
	}
	if err := f.addLink(parent, message.NewHardLink(name, addr)); err != nil {
		f.allocator.Free(addr, uint64(len(buf)))
		if size > 0 {
			f.allocator.Free(storage.Address, size)
		}
		return err
	}
	return nil
}

// Delete unlinks the object at p and releases the space it used. Groups
// are released with everything below them.
func (f *File) Delete(p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkWritable(); err != nil {
		return err
	}
	p = CleanPath(p)
	hops, _, err := f.locate(p)
	if err != nil {
		return err
	}
	if len(hops) < 2 {
		return fmt.Errorf("%w: cannot delete the root group", ErrInvalidPath)
	}
	target := hops[len(hops)-1]
	parent := hops[:len(hops)-1]
	err = f.editGroup(parent, func(links []*message.Link) ([]*message.Link, error) {
		out := links[:0]
		for _, l := range links {
			if l.Name != target.name {
				out = append(out, l)
			}
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	return f.release(target.addr, 0)
}

func (f *File) addLink(groupPath string, link *message.Link) error {
	hops, h, err := f.locate(groupPath)
	if err != nil {
		return err
	}
	if h.IsDataset() {
		return fmt.Errorf("%w: %s", ErrNotGroup, groupPath)
	}
	return f.editGroup(hops, func(links []*message.Link) ([]*message.Link, error) {
		for _, l := range links {
			if l.Name == link.Name {
				return nil, fmt.Errorf("%w: %s", ErrExists, JoinPath(groupPath, link.Name))
			}
		}
		return append(links, link), nil
	})
}

// editGroup rewrites the link list of the group at the end of hops. The
// header is rewritten in place when it fits; otherwise it moves and the
// parent's link is updated, up to the superblock for the root group.
func (f *File) editGroup(hops []hop, edit func([]*message.Link) ([]*message.Link, error)) error {
	g := hops[len(hops)-1]
	h, err := f.header(g.addr)
	if err != nil {
		return err
	}
	if h.Version != 2 || h.Find(message.TypeSymbolTable) != nil {
		return fmt.Errorf("%w: group %s uses old-style storage", ErrReadOnlyFormat, hopsPath(hops))
	}
	links, err := f.linksOf(h)
	if err != nil {
		return err
	}
	if links, err = edit(links); err != nil {
		return err
	}
	msgs := object.GroupMessages(links)
	if buf, err := object.EncodeInto(f.sizes(), msgs, h.Span); err == nil {
		return f.writeAt(buf, g.addr)
	}

	buf := object.Encode(f.sizes(), msgs, len(links)*32+object.GroupSlack)
	addr, err := f.reserve(uint64(len(buf)))
	if err != nil {
		return err
	}
	if err := f.writeAt(buf, addr); err != nil {
		return err
	}
	f.allocator.Free(g.addr, uint64(h.Span))

	if len(hops) == 1 {
		f.sb.RootAddress = addr
		return f.flushLocked()
	}
	return f.editGroup(hops[:len(hops)-1], func(links []*message.Link) ([]*message.Link, error) {
		for _, l := range links {
			if l.Name == g.name {
				l.Address = addr
			}
		}
		return links, nil
	})
}

// release frees an object header and, for datasets, its contiguous
// storage. Objects in headers this package cannot size are left in place.
func (f *File) release(addr uint64, depth int) error {
	if depth > MaxLinkDepth {
		return ErrLinkDepth
	}
	h, err := f.header(addr)
	if err != nil {
		return err
	}
	if h.Version != 2 {
		return nil
	}
	if h.IsDataset() {
		if l := h.Layout(); l.Class == message.LayoutContiguous && l.Size > 0 && !f.reader.IsUndefined(l.Address) {
			f.allocator.Free(l.Address, l.Size)
		}
	} else if links, err := f.linksOf(h); err == nil {
		for _, l := range links {
			if l.Kind != message.LinkHard {
				continue
			}
			if err := f.release(l.Address, depth+1); err != nil {
				return err
			}
		}
	}
	for _, c := range h.Continuations {
		f.allocator.Free(c.Offset, c.Length)
	}
	f.allocator.Free(addr, uint64(h.Span))
	return nil
}
