// Package rename implements the default groom action: removing a substring
// from file names.
package rename

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// DefaultSubstring is removed from file names when no other is configured.
const DefaultSubstring = " - "

// ErrTargetExists is returned when the new name is already taken.
var ErrTargetExists = errors.New("rename target already exists")

// Recorder receives every completed rename.
type Recorder interface {
	Record(oldPath, newPath string) error
}

// Options configures a Stripper.
type Options struct {
	// Substring is removed from every file stem. Defaults to DefaultSubstring.
	Substring string

	// DryRun logs what would be renamed without touching the filesystem.
	DryRun bool

	// Recorder, if set, is told about each rename after it succeeds.
	Recorder Recorder
}

// Stripper removes a substring from file names.
type Stripper struct {
	opts Options
}

// New creates a Stripper.
func New(opts Options) *Stripper {
	if opts.Substring == "" {
		opts.Substring = DefaultSubstring
	}
	return &Stripper{opts: opts}
}

// NewName returns the name base would be renamed to, and whether it changes.
// The extension is kept as-is; the substring is removed from the stem and
// the result trimmed of surrounding whitespace. A stem that would become
// empty is left alone.
func NewName(base, substring string) (string, bool) {
	stem, ext := SplitExt(base)
	stripped := strings.TrimSpace(strings.ReplaceAll(stem, substring, ""))
	if stripped == "" || stripped == stem {
		return base, false
	}
	return stripped + ext, true
}

// SplitExt splits name into stem and extension. Leading dots belong to the
// stem, so ".profile" has no extension and "a.tar.gz" splits as "a.tar" + ".gz".
func SplitExt(name string) (stem, ext string) {
	lead := len(name) - len(strings.TrimLeft(name, "."))
	i := strings.LastIndexByte(name[lead:], '.')
	if i < 0 {
		return name, ""
	}
	i += lead
	return name[:i], name[i:]
}

// Process renames item if its name contains the substring.
func (s *Stripper) Process(_ context.Context, item types.Item) (bool, error) {
	log := logging.Get("rename")

	dir, base := filepath.Split(item.Path)
	newBase, ok := NewName(base, s.opts.Substring)
	if !ok {
		return false, nil
	}
	newPath := filepath.Join(dir, newBase)

	if s.opts.DryRun {
		log.Info("would rename file", "path", item.Path, "to", newBase)
		return true, nil
	}

	if err := renameNoReplace(item.Path, newPath); err != nil {
		return false, fmt.Errorf("renaming %s to %s: %w", item.Path, newBase, err)
	}
	log.Info("file renamed", "path", item.Path, "to", newBase)

	if s.opts.Recorder != nil {
		if err := s.opts.Recorder.Record(item.Path, newPath); err != nil {
			log.Warn("failed to record rename", "path", item.Path, "error", err)
		}
	}
	return true, nil
}

// renameFallback checks for the target and renames. There is a window
// between the check and the rename; it is only used where the kernel offers
// no atomic no-replace rename.
func renameFallback(oldPath, newPath string) error {
	if _, err := os.Lstat(newPath); err == nil {
		return ErrTargetExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.Rename(oldPath, newPath)
}
