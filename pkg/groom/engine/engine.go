// Package engine runs one groom pass: it validates the root, starts the
// producer and the worker pool over a shared queue, and waits for both.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/groom/pkg/groom/exclude"
	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/pool"
	"github.com/jamesainslie/groom/pkg/groom/queue"
	"github.com/jamesainslie/groom/pkg/groom/runlock"
	"github.com/jamesainslie/groom/pkg/groom/types"
	"github.com/jamesainslie/groom/pkg/groom/walker"
	"github.com/jamesainslie/groom/pkg/groom/watcher"
)

// Root validation errors.
var (
	ErrRootMissing  = errors.New("root path does not exist")
	ErrNotDirectory = errors.New("root path is not a directory")
)

// Options configures a run.
type Options struct {
	// Root is the directory to process.
	Root string

	// RunID identifies the run in logs and the journal. Generated when empty.
	RunID string

	// Workers is the worker count. Defaults to runtime.NumCPU().
	Workers int

	// Follow traverses symlinked directories.
	Follow bool

	// ParallelWalk lists the tree with fastwalk instead of the
	// single-goroutine depth-first walker.
	ParallelWalk bool

	// WalkWorkers is fastwalk's goroutine count when ParallelWalk is set.
	WalkWorkers int

	// ExcludeDirs and ExcludeFiles are basename patterns to leave alone.
	ExcludeDirs  *exclude.Set
	ExcludeFiles *exclude.Set

	// PollInterval caps a worker's wait on a pending queue.
	PollInterval time.Duration

	// Processor is the per-file action. Nil only counts.
	Processor pool.Processor

	// ProcessDirs also applies Processor to directories.
	ProcessDirs bool

	// Observer receives progress from the workers.
	Observer pool.Observer

	// Watch keeps the queue open after the walk and feeds it with newly
	// created paths until ctx is cancelled.
	Watch bool

	// LockDir, when set, holds a per-root lock there for the whole run.
	LockDir string
}

// Summary is the outcome of a run.
type Summary struct {
	RunID       string         `json:"run_id"`
	Root        string         `json:"root"`
	Stats       types.RunStats `json:"stats"`
	Walk        walker.Result  `json:"walk"`
	Elapsed     time.Duration  `json:"elapsed"`
	Interrupted bool           `json:"interrupted"`
}

// ValidateRoot resolves root to an absolute path and checks that it is an
// existing directory.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRootMissing, abs)
		}
		return "", fmt.Errorf("cannot access %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	return abs, nil
}

// Run processes opts.Root and blocks until every discovered item has been
// handled or ctx is cancelled. Cancellation is not an error: the summary is
// returned with Interrupted set.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	root, err := ValidateRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	if opts.LockDir != "" {
		lock, err := runlock.Acquire(opts.LockDir, root)
		if err != nil {
			return nil, err
		}
		defer func() { _ = lock.Release() }()
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logging.Get("engine").With("run", runID)

	start := time.Now()
	q := queue.New()
	stats := pool.NewStats()
	workers := pool.New(pool.Options{
		Workers:      opts.Workers,
		Processor:    opts.Processor,
		ProcessDirs:  opts.ProcessDirs,
		ExcludeFiles: opts.ExcludeFiles,
		PollInterval: opts.PollInterval,
		Observer:     opts.Observer,
	}, stats)

	wopts := walker.Options{Follow: opts.Follow, ExcludeDirs: opts.ExcludeDirs}
	var producer walker.Producer = walker.New(wopts)
	if opts.ParallelWalk {
		producer = walker.NewFast(wopts, opts.WalkWorkers)
	}

	log.Info("starting run", "root", root, "workers", opts.Workers,
		"follow", opts.Follow, "parallel_walk", opts.ParallelWalk, "watch", opts.Watch)

	g, gctx := errgroup.WithContext(ctx)

	var sink walker.Queue = q
	if opts.Watch {
		w, err := watcher.New(opts.ExcludeDirs)
		if err != nil {
			return nil, fmt.Errorf("starting watcher: %w", err)
		}
		defer func() { _ = w.Close() }()
		if err := w.Watch(root); err != nil {
			return nil, fmt.Errorf("watching %s: %w", root, err)
		}

		// The walk must not close the queue; the watcher keeps using it.
		sink = holdOpen{q}
		g.Go(func() error {
			defer q.MarkListingComplete()
			err := w.Run(gctx, q)
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			return ignoreCancel(err)
		})
	}

	var walkRes walker.Result
	g.Go(func() error {
		res, err := producer.Walk(gctx, root, sink)
		walkRes = res
		return ignoreCancel(err)
	})

	g.Go(func() error {
		return ignoreCancel(workers.Run(gctx, q))
	})

	err = g.Wait()
	summary := &Summary{
		RunID:       runID,
		Root:        root,
		Stats:       stats.Snapshot(),
		Walk:        walkRes,
		Elapsed:     time.Since(start),
		Interrupted: ctx.Err() != nil,
	}
	summary.Stats.Elapsed = summary.Elapsed

	if err != nil {
		log.Error("run failed", "error", err)
		return summary, err
	}

	log.Info("run finished",
		"files", summary.Stats.FilesSeen,
		"dirs", summary.Stats.DirsSeen,
		"modified", summary.Stats.FilesModified,
		"failed", summary.Stats.Failed,
		"interrupted", summary.Interrupted,
		"duration", types.FormatElapsed(summary.Elapsed))
	return summary, nil
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// holdOpen forwards pushes but ignores the producer's completion signal.
type holdOpen struct {
	q *queue.PathQueue
}

func (h holdOpen) Push(item types.Item) error {
	return h.q.Push(item)
}

func (holdOpen) MarkListingComplete() {}
