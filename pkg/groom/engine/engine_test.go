package engine_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/groom/pkg/groom/engine"
	"github.com/jamesainslie/groom/pkg/groom/exclude"
	"github.com/jamesainslie/groom/pkg/groom/pool"
	"github.com/jamesainslie/groom/pkg/groom/rename"
	"github.com/jamesainslie/groom/pkg/groom/runlock"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// exampleTree builds root/{a - b.txt, c.txt, .secret, sub/d - e.txt}.
func exampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	for _, f := range []string{"a - b.txt", "c.txt", ".secret", filepath.Join("sub", "d - e.txt")} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("x"), 0o644))
	}
	return root
}

func TestRunExampleScenario(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "stack"
		if parallel {
			name = "fast"
		}
		t.Run(name, func(t *testing.T) {
			root := exampleTree(t)

			sum, err := engine.Run(context.Background(), engine.Options{
				Root:         root,
				Workers:      4,
				ParallelWalk: parallel,
				ExcludeDirs:  exclude.MustSet(exclude.DefaultDirs...),
				ExcludeFiles: exclude.MustSet(exclude.DefaultFiles...),
				PollInterval: 20 * time.Millisecond,
				Processor:    rename.New(rename.Options{}),
			})
			require.NoError(t, err)

			assert.EqualValues(t, 3, sum.Stats.FilesSeen)
			assert.EqualValues(t, 2, sum.Stats.FilesModified)
			assert.EqualValues(t, 1, sum.Stats.DirsSeen)
			assert.EqualValues(t, 0, sum.Stats.Failed)
			assert.False(t, sum.Interrupted)
			assert.NotEmpty(t, sum.RunID)
			assert.EqualValues(t, 5, sum.Walk.Enqueued)

			assert.FileExists(t, filepath.Join(root, "ab.txt"))
			assert.FileExists(t, filepath.Join(root, "sub", "de.txt"))
			assert.FileExists(t, filepath.Join(root, "c.txt"))
			assert.FileExists(t, filepath.Join(root, ".secret"))
			assert.NoFileExists(t, filepath.Join(root, "a - b.txt"))
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	root := exampleTree(t)
	opts := engine.Options{
		Root:         root,
		Workers:      2,
		PollInterval: 20 * time.Millisecond,
		Processor:    rename.New(rename.Options{}),
	}

	_, err := engine.Run(context.Background(), opts)
	require.NoError(t, err)

	sum, err := engine.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum.Stats.FilesModified)
	assert.EqualValues(t, 3, sum.Stats.FilesSeen)
}

func TestRunExcludedDirectoryNotEntered(t *testing.T) {
	root := exampleTree(t)
	snap := filepath.Join(root, ".snapshot")
	require.NoError(t, os.Mkdir(snap, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(snap, "x - y.txt"), nil, 0o644))

	sum, err := engine.Run(context.Background(), engine.Options{
		Root:         root,
		ExcludeDirs:  exclude.MustSet(exclude.DefaultDirs...),
		PollInterval: 20 * time.Millisecond,
		Processor:    rename.New(rename.Options{}),
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(snap, "x - y.txt"))
	assert.EqualValues(t, 2, sum.Stats.DirsSeen)
}

func TestRunCountsEveryItemOnce(t *testing.T) {
	root := t.TempDir()
	const dirs, perDir = 20, 25
	for d := 0; d < dirs; d++ {
		dir := filepath.Join(root, "d"+string(rune('a'+d)))
		require.NoError(t, os.Mkdir(dir, 0o755))
		for f := 0; f < perDir; f++ {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "f"+string(rune('a'+f))), nil, 0o644))
		}
	}

	var calls atomic.Int64
	proc := pool.ProcessorFunc(func(context.Context, types.Item) (bool, error) {
		calls.Add(1)
		return false, nil
	})

	sum, err := engine.Run(context.Background(), engine.Options{
		Root:         root,
		Workers:      8,
		PollInterval: 10 * time.Millisecond,
		Processor:    proc,
	})
	require.NoError(t, err)

	assert.EqualValues(t, dirs*perDir, calls.Load())
	assert.EqualValues(t, dirs*perDir, sum.Stats.FilesSeen)
	assert.EqualValues(t, dirs, sum.Stats.DirsSeen)
	assert.EqualValues(t, dirs*perDir+dirs, sum.Walk.Enqueued)
}

// A followed directory link whose own name contains the substring is
// traversed as a directory and left alone; everything behind it is renamed
// exactly once.
func TestRunFollowedDirectoryLink(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		name := "stack"
		if parallel {
			name = "fast"
		}
		t.Run(name, func(t *testing.T) {
			root := t.TempDir()
			target := filepath.Join(root, "real")
			require.NoError(t, os.Mkdir(target, 0o755))
			const files = 50
			for i := 0; i < files; i++ {
				require.NoError(t, os.WriteFile(filepath.Join(target, fmt.Sprintf("x - %02d.txt", i)), nil, 0o644))
			}
			link := filepath.Join(root, "my - link")
			require.NoError(t, os.Symlink(target, link))

			sum, err := engine.Run(context.Background(), engine.Options{
				Root:         root,
				Workers:      4,
				Follow:       true,
				ParallelWalk: parallel,
				PollInterval: 10 * time.Millisecond,
				Processor:    rename.New(rename.Options{}),
			})
			require.NoError(t, err)

			assert.EqualValues(t, files, sum.Stats.FilesSeen)
			assert.EqualValues(t, files, sum.Stats.FilesModified)
			assert.EqualValues(t, 2, sum.Stats.DirsSeen)
			assert.EqualValues(t, 0, sum.Stats.Failed)
			assert.EqualValues(t, files+2, sum.Walk.Enqueued)

			info, err := os.Lstat(link)
			require.NoError(t, err)
			assert.NotZero(t, info.Mode()&os.ModeSymlink)
			assert.NoFileExists(t, filepath.Join(root, "mylink"))

			for i := 0; i < files; i++ {
				assert.FileExists(t, filepath.Join(target, fmt.Sprintf("x%02d.txt", i)))
			}
		})
	}
}

func TestRunRootErrors(t *testing.T) {
	_, err := engine.Run(context.Background(), engine.Options{Root: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorIs(t, err, engine.ErrRootMissing)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = engine.Run(context.Background(), engine.Options{Root: file})
	assert.ErrorIs(t, err, engine.ErrNotDirectory)
}

func TestRunHoldsLock(t *testing.T) {
	root := exampleTree(t)
	lockDir := t.TempDir()

	held, err := runlock.Acquire(lockDir, root)
	require.NoError(t, err)
	defer held.Release()

	_, err = engine.Run(context.Background(), engine.Options{Root: root, LockDir: lockDir})
	assert.ErrorIs(t, err, runlock.ErrLocked)
}

func TestRunCancelledIsInterrupted(t *testing.T) {
	root := exampleTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	proc := pool.ProcessorFunc(func(context.Context, types.Item) (bool, error) {
		cancel()
		return false, nil
	})

	sum, err := engine.Run(ctx, engine.Options{
		Root:         root,
		Workers:      1,
		PollInterval: 10 * time.Millisecond,
		Processor:    proc,
	})
	require.NoError(t, err)
	assert.True(t, sum.Interrupted)
	assert.Less(t, sum.Stats.FilesSeen, int64(3))
}

func TestRunWatchPicksUpNewFiles(t *testing.T) {
	root := exampleTree(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newPath := filepath.Join(root, "late - arrival.txt")
	renamed := filepath.Join(root, "latearrival.txt")

	done := make(chan *engine.Summary, 1)
	go func() {
		sum, err := engine.Run(ctx, engine.Options{
			Root:         root,
			Workers:      2,
			PollInterval: 10 * time.Millisecond,
			Processor:    rename.New(rename.Options{}),
			Watch:        true,
		})
		assert.NoError(t, err)
		done <- sum
	}()

	// Wait for the initial pass before adding the new file.
	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(root, "sub", "de.txt"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(newPath, []byte("x"), 0o644))
	require.Eventually(t, func() bool {
		_, err := os.Stat(renamed)
		return err == nil
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case sum := <-done:
		require.NotNil(t, sum)
		assert.True(t, sum.Interrupted)
		assert.GreaterOrEqual(t, sum.Stats.FilesModified, int64(3))
	case <-time.After(3 * time.Second):
		t.Fatal("watch run did not stop after cancel")
	}
}
