package hdf5

import (
	"strings"
)

// SplitPath splits a path into its non-empty components.
//
//	"/"             -> []
//	"entry/arr/tth" -> ["entry", "arr", "tth"]
func SplitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}

// CleanPath normalizes p to an absolute path without a trailing slash.
func CleanPath(p string) string {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(parts, "/")
}

// JoinPath joins components onto base.
func JoinPath(base string, elem ...string) string {
	return CleanPath(base + "/" + strings.Join(elem, "/"))
}

// splitParent returns the parent path and final component of p.
func splitParent(p string) (string, string, error) {
	parts := SplitPath(p)
	if len(parts) == 0 {
		return "", "", ErrInvalidPath
	}
	for _, s := range parts {
		if s == ".." {
			return "", "", ErrInvalidPath
		}
	}
	return "/" + strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}
