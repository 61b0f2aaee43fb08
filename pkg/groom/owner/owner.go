// Package owner implements the ownership remap action: files and directories
// owned by a listed uid or gid are handed to the mapped id.
package owner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsupported is returned on platforms without numeric file ownership.
var ErrUnsupported = errors.New("ownership remap is not supported on this platform")

// ErrInvalidMapping is returned for a malformed "from:to" pair.
var ErrInvalidMapping = errors.New("invalid id mapping")

// Options configures a Remapper.
type Options struct {
	// UIDs maps current owner ids to new ones.
	UIDs map[int]int

	// GIDs maps current group ids to new ones.
	GIDs map[int]int

	// DryRun logs what would change without calling chown.
	DryRun bool
}

// Remapper changes ownership according to its maps. Symlinks are changed
// themselves, never their targets.
type Remapper struct {
	opts Options
}

// New creates a Remapper.
func New(opts Options) *Remapper {
	return &Remapper{opts: opts}
}

// Empty reports whether there is nothing to remap.
func (r *Remapper) Empty() bool {
	return len(r.opts.UIDs) == 0 && len(r.opts.GIDs) == 0
}

// target returns the new ids for uid and gid and whether either changes.
func (r *Remapper) target(uid, gid int) (newUID, newGID int, changed bool) {
	newUID, newGID = uid, gid
	if to, ok := r.opts.UIDs[uid]; ok && to != uid {
		newUID = to
		changed = true
	}
	if to, ok := r.opts.GIDs[gid]; ok && to != gid {
		newGID = to
		changed = true
	}
	return newUID, newGID, changed
}

// ParseMappings parses pairs of the form "from:to", e.g. "1001:2001".
func ParseMappings(pairs []string) (map[int]int, error) {
	out := make(map[int]int, len(pairs))
	for _, pair := range pairs {
		from, to, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMapping, pair)
		}
		f, err := strconv.Atoi(strings.TrimSpace(from))
		if err != nil || f < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMapping, pair)
		}
		t, err := strconv.Atoi(strings.TrimSpace(to))
		if err != nil || t < 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidMapping, pair)
		}
		out[f] = t
	}
	return out, nil
}
