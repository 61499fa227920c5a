package store

import (
	"strings"

	"github.com/ishizawa2468/XRDSpotAnalyzer/internal/failure"
)

// Match returns every path containing query as a literal substring, with
// leading slashes stripped.
func Match(paths []string, query string) []string {
	var out []string
	for _, p := range paths {
		if strings.Contains(p, query) {
			out = append(out, strings.TrimLeft(p, "/"))
		}
	}
	return out
}

// Resolve returns the single dataset path containing query. It fails with
// a not-found error when nothing matches and with an ambiguous error
// listing every match when more than one does.
func (s *Store) Resolve(query string) (string, error) {
	matches, err := s.ResolveAll(query)
	if err != nil {
		return "", err
	}
	if len(matches) > 1 {
		return "", failure.NewAmbiguous("resolve", query, matches)
	}
	s.logger.Debug("query resolved", "query", query, "path", matches[0])
	return matches[0], nil
}

// ResolveAll returns every dataset path containing query and leaves the
// choice to the caller. It fails with a not-found error when nothing
// matches.
func (s *Store) ResolveAll(query string) ([]string, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}
	matches := Match(paths, query)
	if len(matches) == 0 {
		return nil, failure.Newf(failure.NotFound, "resolve", query, "no dataset in %s contains the query", s.path)
	}
	return matches, nil
}
