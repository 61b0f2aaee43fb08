// Package progress renders the single status line shown while a run is in
// progress.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// DefaultInterval is the minimum time between two rendered lines.
const DefaultInterval = 100 * time.Millisecond

// EveryUpdate as an interval disables throttling: every Update renders.
const EveryUpdate time.Duration = -1

// Line formats stats the way the status line shows them, without the
// leading carriage return.
func Line(s types.RunStats) string {
	return fmt.Sprintf("Processed %s files in %s directories, %s files modified in %s.",
		types.FormatCount(s.FilesSeen),
		types.FormatCount(s.DirsSeen),
		types.FormatCount(s.FilesModified),
		types.FormatElapsed(s.Elapsed))
}

// Reporter writes an overwriting status line to w. Update may be called
// from any number of goroutines.
type Reporter struct {
	w        io.Writer
	interval time.Duration

	// lastRender is the UnixNano of the last render, used as a CAS throttle.
	lastRender atomic.Int64

	mu     sync.Mutex
	width  int
	closed bool
}

// New creates a Reporter. interval 0 uses DefaultInterval; a negative
// interval such as EveryUpdate renders on every update.
func New(w io.Writer, interval time.Duration) *Reporter {
	if interval == 0 {
		interval = DefaultInterval
	}
	return &Reporter{w: w, interval: interval}
}

// Update renders s unless a line was rendered less than interval ago.
func (r *Reporter) Update(s types.RunStats) {
	if r.interval < 0 {
		r.render(s)
		return
	}
	now := time.Now().UnixNano()
	last := r.lastRender.Load()
	if last != 0 && now-last < int64(r.interval) {
		return
	}
	if !r.lastRender.CompareAndSwap(last, now) {
		return // another goroutine is rendering
	}
	r.render(s)
}

// Finish renders s unconditionally and ends the line. Later updates are
// ignored.
func (r *Reporter) Finish(s types.RunStats) {
	r.render(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	_, _ = io.WriteString(r.w, "\n")
}

func (r *Reporter) render(s types.RunStats) {
	line := Line(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	// Pad over leftovers of a longer previous line.
	pad := r.width - len(line)
	if pad < 0 {
		pad = 0
	}
	r.width = len(line)
	_, _ = fmt.Fprintf(r.w, "\r%s%*s", line, pad, "")
}

// Discard is an observer that drops every update. It is used in quiet mode.
type Discard struct{}

// Update does nothing.
func (Discard) Update(types.RunStats) {}

// Finish does nothing.
func (Discard) Finish(types.RunStats) {}
