package journal_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/groom/pkg/groom/journal"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

func open(t *testing.T) *journal.Journal {
	t.Helper()
	j, err := journal.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndList(t *testing.T) {
	j := open(t)

	run, err := j.BeginRun("/music", "strip", false)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID())

	require.NoError(t, run.Record("/music/a - b.mp3", "/music/ab.mp3"))
	require.NoError(t, run.Record("/music/c - d.mp3", "/music/cd.mp3"))
	require.NoError(t, run.Finish(types.RunStats{FilesSeen: 5, FilesModified: 2}))

	entries, err := j.Entries(run.ID())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/music/a - b.mp3", entries[0].Old)
	assert.Equal(t, "/music/ab.mp3", entries[0].New)
	assert.Equal(t, "/music/cd.mp3", entries[1].New)

	info, err := j.Run(run.ID())
	require.NoError(t, err)
	assert.Equal(t, "/music", info.Root)
	assert.Equal(t, "strip", info.Action)
	assert.EqualValues(t, 2, info.Renames)
	assert.EqualValues(t, 5, info.Stats.FilesSeen)
	assert.False(t, info.Finished.IsZero())
}

func TestRunsNewestFirst(t *testing.T) {
	j := open(t)

	first, err := j.BeginRun("/a", "strip", false)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := j.BeginRun("/b", "chown", true)
	require.NoError(t, err)

	runs, err := j.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID(), runs[0].ID)
	assert.Equal(t, first.ID(), runs[1].ID)
	assert.True(t, runs[0].DryRun)
}

func TestEntriesAreScopedToRun(t *testing.T) {
	j := open(t)

	a, err := j.BeginRun("/x", "strip", false)
	require.NoError(t, err)
	b, err := j.BeginRun("/x", "strip", false)
	require.NoError(t, err)

	require.NoError(t, a.Record("/x/1", "/x/one"))
	require.NoError(t, b.Record("/x/2", "/x/two"))

	got, err := j.Entries(a.ID())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "/x/one", got[0].New)
}

func TestConcurrentRecordKeepsEverything(t *testing.T) {
	j := open(t)
	run, err := j.BeginRun("/c", "strip", false)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, run.Record(fmt.Sprintf("/c/%d-%d", w, i), "/c/new"))
			}
		}(w)
	}
	wg.Wait()

	entries, err := j.Entries(run.ID())
	require.NoError(t, err)
	assert.Len(t, entries, 100)
}

func TestUnknownRun(t *testing.T) {
	j := open(t)

	_, err := j.Run("nope")
	assert.ErrorIs(t, err, journal.ErrRunNotFound)

	_, err = j.Entries("nope")
	assert.ErrorIs(t, err, journal.ErrRunNotFound)
}

func TestDelete(t *testing.T) {
	j := open(t)
	run, err := j.BeginRun("/d", "strip", false)
	require.NoError(t, err)
	require.NoError(t, run.Record("/d/a", "/d/b"))

	require.NoError(t, j.Delete(run.ID()))

	_, err = j.Run(run.ID())
	assert.ErrorIs(t, err, journal.ErrRunNotFound)
	runs, err := j.Runs()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestReopenKeepsRuns(t *testing.T) {
	dir := t.TempDir()

	j, err := journal.Open(dir)
	require.NoError(t, err)
	run, err := j.BeginRun("/r", "strip", false)
	require.NoError(t, err)
	require.NoError(t, run.Record("/r/a - b", "/r/ab"))
	require.NoError(t, j.Close())

	j, err = journal.Open(dir)
	require.NoError(t, err)
	defer j.Close()

	entries, err := j.Entries(run.ID())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
