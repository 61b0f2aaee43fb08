package walker

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// FastWalker lists the tree with fastwalk. The callback runs on fastwalk's
// goroutines, so pushes arrive concurrently and in no particular order.
// When following links it shares the stack walker's visited set, so a
// directory reached by more than one path is listed once.
type FastWalker struct {
	opts       Options
	numWorkers int
}

// NewFast creates a FastWalker. numWorkers <= 0 lets fastwalk choose.
func NewFast(opts Options, numWorkers int) *FastWalker {
	return &FastWalker{opts: opts, numWorkers: numWorkers}
}

// Walk lists root into q and marks q complete when fastwalk returns.
func (w *FastWalker) Walk(ctx context.Context, root string, q Queue) (Result, error) {
	defer q.MarkListingComplete()

	start := time.Now()
	var dirs, enqueued, failures atomic.Int64

	root, err := filepath.Abs(root)
	if err != nil {
		return Result{}, err
	}

	var visited *visitedSet
	if w.opts.Follow {
		visited = newVisitedSet()
		if info, err := os.Stat(root); err == nil {
			visited.claim(info)
		}
	}

	conf := fastwalk.Config{
		Follow:     w.opts.Follow,
		NumWorkers: w.numWorkers,
	}

	walkErr := fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		log := logging.Get("walker")
		if err != nil {
			failures.Add(1)
			log.Error("failed to list directory", "path", path, "error", err)
			return nil
		}
		if path == root {
			dirs.Add(1)
			return nil
		}

		item, descend := w.classify(path, d, visited)
		if pushErr := q.Push(item); pushErr != nil {
			return pushErr
		}
		enqueued.Add(1)

		if item.IsDir {
			if !descend {
				return fastwalk.SkipDir
			}
			dirs.Add(1)
		}
		return nil
	})

	res := Result{
		DirsListed: dirs.Load(),
		Enqueued:   enqueued.Load(),
		Errors:     failures.Load(),
		Elapsed:    time.Since(start),
	}

	if walkErr != nil && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return res, walkErr
	}

	logging.Get("walker").Info("done gathering list of files",
		"dirs", res.DirsListed, "items", res.Enqueued, "duration", types.FormatElapsed(res.Elapsed))
	return res, nil
}

// classify mirrors Walker.classify.
func (w *FastWalker) classify(path string, d fs.DirEntry, visited *visitedSet) (types.Item, bool) {
	log := logging.Get("walker")

	if d.Type()&fs.ModeSymlink == 0 {
		if !d.IsDir() {
			return types.Item{Path: path}, false
		}
		item := types.Item{Path: path, IsDir: true}
		var info fs.FileInfo
		if visited != nil {
			var err error
			if info, err = d.Info(); err != nil {
				log.Warn("cannot stat directory", "path", path, "error", err)
				return item, false
			}
		}
		return item, shouldDescend(w.opts, path, info, visited)
	}

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
