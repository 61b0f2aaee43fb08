package progress_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jamesainslie/groom/pkg/groom/progress"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// syncBuffer guards a bytes.Buffer for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestLine(t *testing.T) {
	got := progress.Line(types.RunStats{
		FilesSeen:     1234,
		DirsSeen:      56,
		FilesModified: 7,
		Elapsed:       time.Minute + 3*time.Second,
	})
	assert.Equal(t, "Processed 1,234 files in 56 directories, 7 files modified in 1m 3s.", got)

	assert.Equal(t, "Processed 0 files in 0 directories, 0 files modified in 0s.", progress.Line(types.RunStats{}))
}

func TestReporterThrottles(t *testing.T) {
	var buf syncBuffer
	r := progress.New(&buf, time.Hour)

	r.Update(types.RunStats{FilesSeen: 1})
	r.Update(types.RunStats{FilesSeen: 2})
	r.Update(types.RunStats{FilesSeen: 3})

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "\r"))
	assert.Contains(t, out, "Processed 1 files")
}

func TestReporterEveryUpdate(t *testing.T) {
	var buf syncBuffer
	r := progress.New(&buf, progress.EveryUpdate)

	for i := int64(1); i <= 5; i++ {
		r.Update(types.RunStats{FilesSeen: i})
	}

	out := buf.String()
	assert.Equal(t, 5, strings.Count(out, "\r"))
	assert.Contains(t, out, "Processed 5 files")
}

func TestReporterFinishForcesRender(t *testing.T) {
	var buf syncBuffer
	r := progress.New(&buf, time.Hour)

	r.Update(types.RunStats{FilesSeen: 1})
	r.Finish(types.RunStats{FilesSeen: 9, FilesModified: 2})
	r.Update(types.RunStats{FilesSeen: 10})

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "Processed 9 files in 0 directories, 2 files modified")
	assert.NotContains(t, out, "Processed 10 files")
}

func TestReporterPadsShorterLine(t *testing.T) {
	var buf syncBuffer
	r := progress.New(&buf, time.Nanosecond)

	r.Update(types.RunStats{FilesSeen: 1_000_000, Elapsed: time.Hour + time.Minute})
	time.Sleep(time.Millisecond)
	r.Finish(types.RunStats{FilesSeen: 1})

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\r")
	assert.Len(t, lines, 3) // leading empty segment plus two renders
	assert.Equal(t, len(lines[1]), len(lines[2]))
}

func TestReporterConcurrentUpdates(t *testing.T) {
	var buf syncBuffer
	r := progress.New(&buf, time.Millisecond)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Update(types.RunStats{FilesSeen: int64(n*1000 + j)})
			}
		}(i)
	}
	wg.Wait()
	r.Finish(types.RunStats{FilesSeen: 42})

	out := buf.String()
	for _, seg := range strings.Split(strings.TrimSuffix(out, "\n"), "\r")[1:] {
		assert.True(t, strings.HasPrefix(seg, "Processed "), "garbled segment %q", seg)
	}
}

func TestDiscard(t *testing.T) {
	var d progress.Discard
	d.Update(types.RunStats{FilesSeen: 1})
	d.Finish(types.RunStats{})
}
