// Package queue provides the shared work queue between the tree walker and
// the worker pool. The queue is unbounded, safe for concurrent use, and
// carries a one-shot "listing complete" flag that lets consumers tell a
// momentarily empty queue apart from a finished one.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// ErrClosed is returned by Push after MarkListingComplete has been called.
var ErrClosed = errors.New("queue: listing already complete")

// State describes the outcome of a Next call.
type State int

const (
	// Ready means an item was returned.
	Ready State = iota
	// Pending means the queue is empty but the producer is still listing.
	Pending
	// Drained means the queue is empty and no more items will arrive.
	Drained
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Pending:
		return "pending"
	case Drained:
		return "drained"
	default:
		return "unknown"
	}
}

// PathQueue is an unbounded FIFO of discovered items.
//
// Every item is handed to exactly one consumer. Emptiness and the completion
// flag are always read under the same lock, so a consumer can never observe
// "empty and complete" while the producer still has items to push.
type PathQueue struct {
	mu       sync.Mutex
	items    []types.Item
	head     int
	complete bool
	pushed   int64
}

// New creates an empty queue.
func New() *PathQueue {
	return &PathQueue{}
}

// Push appends an item. It never waits for consumers.
func (q *PathQueue) Push(item types.Item) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.complete {
		return ErrClosed
	}
	q.items = append(q.items, item)
	q.pushed++
	return nil
}

// TryPop removes and returns the head item, or reports false if the queue is empty.
func (q *PathQueue) TryPop() (types.Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Next removes the head item if there is one. Otherwise it reports whether
// the queue is still waiting on the producer (Pending) or finished (Drained).
func (q *PathQueue) Next() (types.Item, State) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.popLocked(); ok {
		return item, Ready
	}
	if q.complete {
		return types.Item{}, Drained
	}
	return types.Item{}, Pending
}

// popLocked pops the head. Must be called with q.mu held.
func (q *PathQueue) popLocked() (types.Item, bool) {
	if q.head >= len(q.items) {
		return types.Item{}, false
	}

	item := q.items[q.head]
	q.items[q.head] = types.Item{}
	q.head++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 1024 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}

// MarkListingComplete records that the producer will push nothing else.
// Calls after the first are no-ops.
func (q *PathQueue) MarkListingComplete() {
	q.mu.Lock()
	q.complete = true
	q.mu.Unlock()
}

// Complete reports whether MarkListingComplete has been called.
func (q *PathQueue) Complete() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.complete
}

// Len returns the number of items waiting to be consumed.
func (q *PathQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Pushed returns the total number of items ever pushed.
func (q *PathQueue) Pushed() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pushed
}

// Backoff produces the wait used by a consumer that sees a Pending queue.
// Waits start at Min and double up to Max. Reset after every item.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	next time.Duration
}

// DefaultMinWait is the first wait after a Pending result.
const DefaultMinWait = 10 * time.Millisecond

// Wait sleeps for the current interval or until ctx is done.
// It returns ctx.Err() if the context ended first.
func (b *Backoff) Wait(ctx context.Context) error {
	if b.next <= 0 {
		b.next = b.Min
		if b.next <= 0 {
			b.next = DefaultMinWait
		}
	}
	if b.Max > 0 && b.next > b.Max {
		b.next = b.Max
	}

	timer := time.NewTimer(b.next)
	defer timer.Stop()

	b.next *= 2

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reset returns the backoff to its initial interval.
func (b *Backoff) Reset() {
	b.next = 0
}
