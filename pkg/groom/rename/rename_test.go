package rename

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

func TestSplitExt(t *testing.T) {
	tests := []struct {
		name string
		stem string
		ext  string
	}{
		{"a - b.txt", "a - b", ".txt"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{"README", "README", ""},
		{".profile", ".profile", ""},
		{"..hidden", "..hidden", ""},
		{".config.yaml", ".config", ".yaml"},
		{"trailing.", "trailing", "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, ext := SplitExt(tt.name)
			assert.Equal(t, tt.stem, stem)
			assert.Equal(t, tt.ext, ext)
		})
	}
}

func TestNewName(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		changed bool
	}{
		{"a - b.txt", "ab.txt", true},
		{"d - e.txt", "de.txt", true},
		{"c.txt", "c.txt", false},
		{"one - two - three.mp3", "onetwothree.mp3", true},
		{" - .txt", " - .txt", false},
		{"Artist - .flac", "Artist.flac", true},
		{"no-dash-here.txt", "no-dash-here.txt", false},
		{"ext - kept.tar - gz", "extkept.tar - gz", true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, changed := NewName(tt.base, DefaultSubstring)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

type memRecorder struct {
	mu    sync.Mutex
	pairs [][2]string
	err   error
}

func (r *memRecorder) Record(oldPath, newPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pairs = append(r.pairs, [2]string{oldPath, newPath})
	return r.err
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestStripperRenames(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a - b.txt")
	write(t, src)

	rec := &memRecorder{}
	s := New(Options{Recorder: rec})

	changed, err := s.Process(context.Background(), types.Item{Path: src})
	require.NoError(t, err)
	assert.True(t, changed)

	assert.NoFileExists(t, src)
	assert.FileExists(t, filepath.Join(dir, "ab.txt"))
	require.Len(t, rec.pairs, 1)
	assert.Equal(t, [2]string{src, filepath.Join(dir, "ab.txt")}, rec.pairs[0])
}

func TestStripperIdempotent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "x - y.md")
	write(t, src)

	s := New(Options{})
	changed, err := s.Process(context.Background(), types.Item{Path: src})
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = s.Process(context.Background(), types.Item{Path: filepath.Join(dir, "xy.md")})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestStripperUnchanged(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "c.txt")
	write(t, src)

	changed, err := New(Options{}).Process(context.Background(), types.Item{Path: src})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.FileExists(t, src)
}

func TestStripperTargetExists(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a - b.txt")
	dst := filepath.Join(dir, "ab.txt")
	write(t, src)
	require.NoError(t, os.WriteFile(dst, []byte("keep me"), 0o644))

	rec := &memRecorder{}
	changed, err := New(Options{Recorder: rec}).Process(context.Background(), types.Item{Path: src})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTargetExists)
	assert.False(t, changed)

	data, readErr := os.ReadFile(dst)
	require.NoError(t, readErr)
	assert.Equal(t, "keep me", string(data))
	assert.FileExists(t, src)
	assert.Empty(t, rec.pairs)
}

func TestStripperDryRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a - b.txt")
	write(t, src)

	rec := &memRecorder{}
	changed, err := New(Options{DryRun: true, Recorder: rec}).Process(context.Background(), types.Item{Path: src})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, src)
	assert.NoFileExists(t, filepath.Join(dir, "ab.txt"))
	assert.Empty(t, rec.pairs)
}

func TestStripperCustomSubstring(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "draft_final_v2.doc")
	write(t, src)

	changed, err := New(Options{Substring: "_final"}).Process(context.Background(), types.Item{Path: src})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, filepath.Join(dir, "draft_v2.doc"))
}

func TestStripperRecorderErrorDoesNotFailRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a - b.txt")
	write(t, src)

	rec := &memRecorder{err: errors.New("journal closed")}
	changed, err := New(Options{Recorder: rec}).Process(context.Background(), types.Item{Path: src})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, filepath.Join(dir, "ab.txt"))
}

func TestRenameFallback(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	write(t, a)

	require.NoError(t, renameFallback(a, b))
	assert.FileExists(t, b)

	write(t, a)
	assert.ErrorIs(t, renameFallback(a, b), ErrTargetExists)
}
