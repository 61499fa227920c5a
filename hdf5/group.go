package hdf5

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/btree"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/heap"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/message"
	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/object"
)

// Group is a container of links to other objects.
type Group struct {
	file   *File
	path   string
	addr   uint64
	header *object.Header
}

// Name returns the last component of the group path.
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return g.path[strings.LastIndex(g.path, "/")+1:]
}

// Path returns the absolute path of the group.
func (g *Group) Path() string { return g.path }

// Links returns the group's links sorted by name.
func (g *Group) Links() ([]*message.Link, error) {
	links, err := g.file.linksOf(g.header)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.path, err)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Name < links[j].Name })
	return links, nil
}

// Members returns the names of the group's links in name order.
func (g *Group) Members() ([]string, error) {
	links, err := g.Links()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name
	}
	return names, nil
}

// OpenGroup opens a group relative to g.
func (g *Group) OpenGroup(rel string) (*Group, error) {
	return g.file.OpenGroup(g.resolve(rel))
}

// OpenDataset opens a dataset relative to g.
func (g *Group) OpenDataset(rel string) (*Dataset, error) {
	return g.file.OpenDataset(g.resolve(rel))
}

func (g *Group) resolve(rel string) string {
	if strings.HasPrefix(rel, "/") {
		return CleanPath(rel)
	}
	return JoinPath(g.path, rel)
}

func (f *File) symbolLinks(st *message.SymbolTable) ([]*message.Link, error) {
	names, err := heap.ReadLocal(f.reader, st.Heap)
	if err != nil {
		return nil, err
	}
	syms, err := btree.ReadGroup(f.reader, st.BTree, names)
	if err != nil {
		return nil, err
	}
	links := make([]*message.Link, len(syms))
	for i, s := range syms {
		if s.Soft() {
			links[i] = message.NewSoftLink(s.Name, s.Target)
		} else {
			links[i] = message.NewHardLink(s.Name, s.Address)
		}
	}
	return links, nil
}

// hop is one step of a resolved path: the object reached and the link name
// used to reach it from the previous hop.
type hop struct {
	name string
	addr uint64
}

func hopsPath(hops []hop) string {
	parts := make([]string, 0, len(hops))
	for _, h := range hops[1:] {
		parts = append(parts, h.name)
	}
	return "/" + strings.Join(parts, "/")
}

// locate resolves p from the root, following soft links. The returned hops
// run from the root to the object through hard links only, so hops[i] is
// always the parent of hops[i+1].
func (f *File) locate(p string) ([]hop, *object.Header, error) {
	return f.locateDepth(p, 0)
}

func (f *File) locateDepth(p string, depth int) ([]hop, *object.Header, error) {
	if depth > MaxLinkDepth {
		return nil, nil, fmt.Errorf("%w: %s", ErrLinkDepth, p)
	}
	hops := []hop{{name: "/", addr: f.sb.RootAddress}}
	h, err := f.header(f.sb.RootAddress)
	if err != nil {
		return nil, nil, err
	}
	parts := SplitPath(p)
	for i, name := range parts {
		if name == ".." {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidPath, p)
		}
		if h.IsDataset() {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotGroup, hopsPath(hops))
		}
		links, err := f.linksOf(h)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", hopsPath(hops), err)
		}
		var link *message.Link
		for _, l := range links {
			if l.Name == name {
				link = l
				break
			}
		}
		if link == nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, CleanPath(p))
		}
		switch link.Kind {
		case message.LinkHard:
			hops = append(hops, hop{name: name, addr: link.Address})
			if h, err = f.header(link.Address); err != nil {
				return nil, nil, err
			}
		case message.LinkSoft:
			target := link.Target
			if !strings.HasPrefix(target, "/") {
				target = JoinPath(hopsPath(hops), target)
			}
			rest := strings.Join(parts[i+1:], "/")
			return f.locateDepth(JoinPath(target, rest), depth+1)
		default:
			return nil, nil, fmt.Errorf("%w: external link %s", ErrUnsupported, JoinPath(hopsPath(hops), name))
		}
	}
	return hops, h, nil
}
