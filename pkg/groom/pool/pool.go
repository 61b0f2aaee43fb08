// Package pool provides the consumer side of a groom run: a fixed set of
// workers that drain the path queue, classify each item, and hand regular
// files to a Processor.
//
// Workers poll the queue instead of blocking on it. A worker that finds the
// queue empty but not yet complete waits with a bounded backoff and tries
// again; it exits only once the queue reports Drained.
package pool

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/groom/pkg/groom/exclude"
	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/queue"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// DefaultPollInterval caps the wait between polls of a pending queue.
const DefaultPollInterval = 2 * time.Second

// Processor is the per-file action. changed reports whether the file was
// modified. Process must be safe for concurrent use.
type Processor interface {
	Process(ctx context.Context, item types.Item) (changed bool, err error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, item types.Item) (bool, error)

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, item types.Item) (bool, error) {
	return f(ctx, item)
}

// Observer is notified after each item with a snapshot of the counters.
// It is called from worker goroutines and must be safe for concurrent use.
type Observer interface {
	Update(stats types.RunStats)
}

// Source is the queue as seen by a worker.
type Source interface {
	Next() (types.Item, queue.State)
}

// Options configures a Pool.
type Options struct {
	// Workers is the number of consumer goroutines. Defaults to runtime.NumCPU().
	Workers int

	// Processor is applied to every regular, non-hidden, non-excluded file.
	// A nil Processor only counts.
	Processor Processor

	// ProcessDirs also applies Processor to directories. Changes count
	// toward DirsModified.
	ProcessDirs bool

	// ExcludeFiles lists file basenames that are skipped with a warning.
	ExcludeFiles *exclude.Set

	// PollInterval caps the backoff while the queue is pending.
	PollInterval time.Duration

	// Observer receives progress after every item. May be nil.
	Observer Observer
}

// Stats holds the run counters. The zero value is ready to use.
type Stats struct {
	filesSeen     atomic.Int64
	dirsSeen      atomic.Int64
	filesModified atomic.Int64
	dirsModified  atomic.Int64
	bytesSeen     atomic.Int64
	failed        atomic.Int64

	start time.Time
}

// NewStats creates a Stats whose elapsed time starts now.
func NewStats() *Stats {
	return &Stats{start: time.Now()}
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() types.RunStats {
	var elapsed time.Duration
	if !s.start.IsZero() {
		elapsed = time.Since(s.start)
	}
	return types.RunStats{
		FilesSeen:     s.filesSeen.Load(),
		DirsSeen:      s.dirsSeen.Load(),
		FilesModified: s.filesModified.Load(),
		DirsModified:  s.dirsModified.Load(),
		BytesSeen:     s.bytesSeen.Load(),
		Failed:        s.failed.Load(),
		Elapsed:       elapsed,
	}
}

// Pool runs the workers for one queue.
type Pool struct {
	opts   Options
	stats  *Stats
	states []atomic.Int32
}

// New creates a Pool that records into stats. A nil stats gets a fresh one.
func New(opts Options, stats *Stats) *Pool {
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Pool{
		opts:   opts,
		stats:  stats,
		states: make([]atomic.Int32, opts.Workers),
	}
}

// Stats returns the counters the pool records into.
func (p *Pool) Stats() *Stats {
	return p.stats
}

// States returns the current state of every worker.
func (p *Pool) States() []WorkerState {
	out := make([]WorkerState, len(p.states))
	for i := range p.states {
		out[i] = WorkerState(p.states[i].Load())
	}
	return out
}

// Run starts the workers and blocks until all of them are done. Workers
// finish when the queue is drained or ctx is cancelled; in the latter case
// Run returns ctx.Err().
func (p *Pool) Run(ctx context.Context, src Source) error {
	log := logging.Get("worker")
	log.Debug("starting workers", "count", p.opts.Workers)

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id, src)
		}(i)
	}
	wg.Wait()

	log.Debug("all workers done")
	return ctx.Err()
}

// work is one worker's loop.
func (p *Pool) work(ctx context.Context, id int, src Source) {
	log := logging.Get("worker").With("worker", id)
	backoff := queue.Backoff{Min: queue.DefaultMinWait, Max: p.opts.PollInterval}

	p.setState(id, StateRunning)
	defer p.setState(id, StateDone)

	for {
		if ctx.Err() != nil {
			return
		}

		item, st := src.Next()
		switch st {
		case queue.Drained:
			log.Debug("queue drained")
			return
		case queue.Pending:
			p.setState(id, StateWaiting)
			if err := backoff.Wait(ctx); err != nil {
				return
			}
			p.setState(id, StateRunning)
			continue
		case queue.Ready:
		}

		backoff.Reset()
		p.handle(ctx, id, item)
		if p.opts.Observer != nil {
			p.opts.Observer.Update(p.stats.Snapshot())
		}
	}
}

// handle classifies item and applies the processor to regular files.
// A followed link to a directory is a directory, as the walker recorded it.
func (p *Pool) handle(ctx context.Context, id int, item types.Item) {
	log := logging.Get("worker").With("worker", id)

	info, err := os.Lstat(item.Path)
	if err != nil {
		p.stats.failed.Add(1)
		log.Error("cannot stat item", "path", item.Path, "error", err)
		return
	}

	if info.IsDir() || (item.IsSymlink && item.IsDir) {
		p.stats.dirsSeen.Add(1)
		if p.opts.ProcessDirs && p.opts.Processor != nil {
			p.apply(ctx, id, item, &p.stats.dirsModified)
		}
		return
	}

	name := filepath.Base(item.Path)
	if strings.HasPrefix(name, ".") {
		log.Debug("skipping hidden file", "path", item.Path)
		return
	}
	if p.opts.ExcludeFiles.Match(name) {
		log.Warn("file is in exclude list", "path", item.Path)
		return
	}

	p.stats.filesSeen.Add(1)
	if info.Mode().IsRegular() {
		p.stats.bytesSeen.Add(info.Size())
	}

	if p.opts.Processor == nil {
		return
	}
	p.apply(ctx, id, item, &p.stats.filesModified)
}

// apply runs the processor and bumps modified on a change.
func (p *Pool) apply(ctx context.Context, id int, item types.Item, modified *atomic.Int64) {
	changed, err := p.process(ctx, item)
	if err != nil {
		p.stats.failed.Add(1)
		err = &ItemError{Worker: id, Item: item, Err: err}
		log := logging.Get("worker").With("worker", id)
		log.Error("failed to process item", "path", item.Path, "error", err)
		log.Debug("processor error stack", "path", item.Path, "stack", string(debug.Stack()))
		return
	}
	if changed {
		modified.Add(1)
	}
}

// process runs the processor and turns a panic into an error carrying the
// stack trace.
func (p *Pool) process(ctx context.Context, item types.Item) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			changed = false
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return p.opts.Processor.Process(ctx, item)
}

// ItemError is a processor failure tagged with the worker and item it
// happened on.
type ItemError struct {
	Worker int
	Item   types.Item
	Err    error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("worker %d: %s: %v", e.Worker, e.Item.Path, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

func (p *Pool) setState(id int, s WorkerState) {
	p.states[id].Store(int32(s))
}
