package hdf5

import (
	"errors"
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
)

// WalkFunc is called for each object reached by Walk. obj is a *Group or
// a *Dataset; err is set instead when the object could not be opened.
// Returning SkipGroup from a group's call skips its members; any other
// non-nil error stops the walk and is returned by Walk.
type WalkFunc func(path string, obj any, err error) error

// SkipGroup tells Walk not to descend into the group just visited.
var SkipGroup = errors.New("skip this group")

// Walk visits g and every object below it through hard links, members in
// name order. Soft and external links are not followed and each object is
// visited once even when linked from several groups.
func Walk(g *Group, fn WalkFunc) error {
	seen := map[uint64]bool{g.addr: true}
	err := walkGroup(g, fn, seen)
	if errors.Is(err, SkipGroup) {
		return nil
	}
	return err
}

func walkGroup(g *Group, fn WalkFunc, seen map[uint64]bool) error {
	if err := fn(g.path, g, nil); err != nil {
		return err
	}
	links, err := g.Links()
	if err != nil {
		return fn(g.path, nil, err)
	}
	for _, l := range links {
		if l.Kind != message.LinkHard || seen[l.Address] {
			continue
		}
		seen[l.Address] = true
		p := JoinPath(g.path, l.Name)
		h, err := g.file.header(l.Address)
		if err != nil {
			if err := fn(p, nil, err); err != nil {
				return err
			}
			continue
		}
		if !h.IsDataset() {
			child := &Group{file: g.file, path: p, addr: l.Address, header: h}
			if err := walkGroup(child, fn, seen); err != nil && !errors.Is(err, SkipGroup) {
				return err
			}
			continue
		}
		var obj any
		ds, err := newDataset(g.file, p, h)
		if err == nil {
			obj = ds
		}
		if err := fn(p, obj, err); err != nil {
			return err
		}
	}
	return nil
}

// DatasetPaths lists every dataset reachable from the root, without the
// leading slash, in walk order.
func (f *File) DatasetPaths() ([]string, error) {
	root, err := f.Root()
	if err != nil {
		return nil, err
	}
	var out []string
	err = Walk(root, func(p string, obj any, err error) error {
		if err != nil {
			return err
		}
		if _, ok := obj.(*Dataset); ok {
			out = append(out, strings.TrimPrefix(p, "/"))
		}
		return nil
	})
	return out, err
}
