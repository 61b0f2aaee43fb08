// Package walker provides the producer side of a groom run: it lists a
// directory tree and pushes every entry it discovers into the work queue,
// then marks the queue complete.
//
// Two producers share the same contract. Walker is a single goroutine doing
// an iterative depth-first walk with an explicit directory stack. FastWalker
// delegates listing to fastwalk's internal goroutines for very wide trees and
// gives up the depth-first order.
package walker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/groom/pkg/groom/exclude"
	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// Queue is where discovered items go.
type Queue interface {
	Push(item types.Item) error
	MarkListingComplete()
}

// Producer lists root into q and marks q complete when it is done,
// whether it finished, was cancelled, or failed.
type Producer interface {
	Walk(ctx context.Context, root string, q Queue) (Result, error)
}

// Options configures a producer.
type Options struct {
	// Follow traverses symlinks that point at directories.
	// When false, symlinks are enqueued as leaves and never entered.
	Follow bool

	// ExcludeDirs lists directory basenames that are enqueued but not entered.
	ExcludeDirs *exclude.Set
}

// Result summarizes a walk.
type Result struct {
	// DirsListed is the number of directories whose contents were read.
	DirsListed int64 `json:"dirs_listed"`

	// Enqueued is the number of items pushed to the queue.
	Enqueued int64 `json:"enqueued"`

	// Errors is the number of directories that could not be (fully) listed.
	Errors int64 `json:"errors"`

	// Elapsed is the wall time of the walk.
	Elapsed time.Duration `json:"elapsed"`
}

// Walker is the single-producer, depth-first tree walker.
type Walker struct {
	opts Options
}

// New creates a Walker.
func New(opts Options) *Walker {
	return &Walker{opts: opts}
}

// Walk lists root depth-first, pushing each entry as it is found.
// Directories are kept on an explicit stack, so tree depth never grows the
// goroutine stack. Listing errors are logged and the walk carries on with
// the next directory.
func (w *Walker) Walk(ctx context.Context, root string, q Queue) (Result, error) {
	defer q.MarkListingComplete()

	log := logging.Get("walker")
	start := time.Now()
	var res Result

	root, err := filepath.Abs(root)
	if err != nil {
		return res, err
	}

	var visited *visitedSet
	if w.opts.Follow {
		visited = newVisitedSet()
		if info, err := os.Stat(root); err == nil {
			visited.claim(info)
		}
	}

	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			res.Elapsed = time.Since(start)
			return res, err
		}

		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			res.Errors++
			log.Error("failed to list directory", "path", dir, "error", err)
			if len(entries) == 0 {
				continue
			}
		}
		res.DirsListed++
		log.Debug("listed directory", "path", dir, "entries", len(entries))

		var subdirs []string
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			item, descend := w.classify(path, entry, visited)

			if err := q.Push(item); err != nil {
				res.Elapsed = time.Since(start)
				return res, err
			}
			res.Enqueued++

			if descend {
				subdirs = append(subdirs, path)
			}
		}

		// Push in reverse so the first subdirectory is listed next.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	res.Elapsed = time.Since(start)
	log.Info("done gathering list of files",
		"dirs", res.DirsListed, "items", res.Enqueued, "duration", types.FormatElapsed(res.Elapsed))
	return res, nil
}

// classify builds the item for an entry and reports whether to descend into it.
func (w *Walker) classify(path string, entry fs.DirEntry, visited *visitedSet) (types.Item, bool) {
	log := logging.Get("walker")

	if entry.Type()&fs.ModeSymlink != 0 {
		item := types.Item{Path: path, IsSymlink: true}
		if !w.opts.Follow {
			log.Warn("skipping link", "path", path)
			return item, false
		}

		info, err := os.Stat(path)
		if err != nil {
			log.Warn("dangling link", "path", path, "error", err)
			return item, false
		}
		if !info.IsDir() {
			return item, false
		}
		item.IsDir = true
		return item, shouldDescend(w.opts, path, info, visited)
	}

	item := types.Item{Path: path, IsDir: entry.IsDir()}
	if !item.IsDir {
		return item, false
	}

	var info fs.FileInfo
	if visited != nil {
		var err error
		if info, err = entry.Info(); err != nil {
			log.Warn("cannot stat directory", "path", path, "error", err)
			return item, false
		}
	}
	return item, shouldDescend(w.opts, path, info, visited)
}

// shouldDescend applies the exclusion set and, when following links, the
// visited-directory check. info may be nil when visited is nil.
func shouldDescend(opts Options, path string, info fs.FileInfo, visited *visitedSet) bool {
	log := logging.Get("walker")

	if opts.ExcludeDirs.Match(filepath.Base(path)) {
		log.Warn("directory is in exclude list", "path", path)
		return false
	}

	if !visited.claim(info) {
		log.Warn("directory already visited, not following", "path", path)
		return false
	}
	return true
}
