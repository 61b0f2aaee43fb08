// Package exclude matches entry basenames against configured exclusion sets.
// Each entry in a set is a glob pattern; a plain name only matches itself.
package exclude

import (
	"fmt"

	"github.com/gobwas/glob"
)

// DefaultDirs are directory basenames that are enqueued but never descended into.
var DefaultDirs = []string{".snapshot"}

// DefaultFiles are file basenames that are never processed.
var DefaultFiles = []string{".DS_Store"}

// Set is a compiled list of basename patterns.
// A nil or empty Set matches nothing.
type Set struct {
	patterns []string
	globs    []glob.Glob
}

// NewSet compiles the given patterns. Empty patterns are ignored.
func NewSet(patterns ...string) (*Set, error) {
	s := &Set{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}
		s.patterns = append(s.patterns, p)
		s.globs = append(s.globs, g)
	}
	return s, nil
}

// MustSet is like NewSet but panics on an invalid pattern.
func MustSet(patterns ...string) *Set {
	s, err := NewSet(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether name matches any pattern in the set.
func (s *Set) Match(name string) bool {
	if s == nil {
		return false
	}
	for _, g := range s.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (s *Set) Patterns() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.patterns))
	copy(out, s.patterns)
	return out
}
