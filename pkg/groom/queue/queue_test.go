package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

func TestPushPopFIFO(t *testing.T) {
	q := New()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Push(types.Item{Path: fmt.Sprintf("/p/%d", i)}))
	}

	assert.Equal(t, 3, q.Len())
	for i := 0; i < 3; i++ {
		item, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("/p/%d", i), item.Path)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
	assert.EqualValues(t, 3, q.Pushed())
}

func TestNextStates(t *testing.T) {
	q := New()

	_, state := q.Next()
	assert.Equal(t, Pending, state)

	require.NoError(t, q.Push(types.Item{Path: "/a"}))
	q.MarkListingComplete()

	item, state := q.Next()
	assert.Equal(t, Ready, state)
	assert.Equal(t, "/a", item.Path)

	_, state = q.Next()
	assert.Equal(t, Drained, state)
}

func TestMarkListingCompleteIsIdempotent(t *testing.T) {
	q := New()
	q.MarkListingComplete()
	q.MarkListingComplete()

	assert.True(t, q.Complete())
	assert.ErrorIs(t, q.Push(types.Item{Path: "/late"}), ErrClosed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "drained", Drained.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestCompactionKeepsOrder(t *testing.T) {
	q := New()
	const total = 5000
	for i := 0; i < total; i++ {
		require.NoError(t, q.Push(types.Item{Path: fmt.Sprintf("%d", i)}))
	}

	for i := 0; i < total; i++ {
		item, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, fmt.Sprintf("%d", i), item.Path)

		// Interleave pushes so compaction happens mid-stream.
		if i == 2500 {
			require.NoError(t, q.Push(types.Item{Path: "tail"}))
		}
	}

	item, ok := q.TryPop()
	require.True(t, ok)
	assert.Equal(t, "tail", item.Path)
}

// TestConcurrentExactlyOnce pushes from one producer while many consumers pop,
// and checks that every item is consumed exactly once.
func TestConcurrentExactlyOnce(t *testing.T) {
	q := New()
	const total = 20000
	const consumers = 8

	var mu sync.Mutex
	seen := make(map[string]int, total)

	var wg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := Backoff{Min: time.Millisecond, Max: 5 * time.Millisecond}
			for {
				item, state := q.Next()
				switch state {
				case Ready:
					b.Reset()
					mu.Lock()
					seen[item.Path]++
					mu.Unlock()
				case Pending:
					_ = b.Wait(context.Background())
				case Drained:
					return
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		require.NoError(t, q.Push(types.Item{Path: fmt.Sprintf("/item/%d", i)}))
		if i%1000 == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	q.MarkListingComplete()
	wg.Wait()

	require.Len(t, seen, total)
	for path, n := range seen {
		if n != 1 {
			t.Fatalf("%s consumed %d times", path, n)
		}
	}
}

func TestBackoffHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := Backoff{Min: time.Hour, Max: time.Hour}
	start := time.Now()
	err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBackoffGrowsToMax(t *testing.T) {
	b := Backoff{Min: time.Millisecond, Max: 4 * time.Millisecond}
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Wait(context.Background()))
	}
	assert.LessOrEqual(t, b.next, 8*time.Millisecond)

	b.Reset()
	assert.Equal(t, time.Duration(0), b.next)
}
