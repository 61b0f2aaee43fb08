// Package watcher keeps feeding a running groom queue with paths created
// under the root after the initial walk.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/groom/pkg/groom/exclude"
	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// Sink receives the items the watcher discovers.
type Sink interface {
	Push(item types.Item) error
}

// Watcher watches a directory tree and pushes new entries to a Sink.
// Symlinks are never followed.
type Watcher struct {
	watcher     *fsnotify.Watcher
	excludeDirs *exclude.Set
	paths       map[string]bool
	mu          sync.RWMutex
	closed      bool
}

// New creates a Watcher. Directories matching excludeDirs are not watched.
func New(excludeDirs *exclude.Set) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		watcher:     fsw,
		excludeDirs: excludeDirs,
		paths:       make(map[string]bool),
	}, nil
}

// Watch adds watches on root and every non-excluded directory below it.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if d.Type()&fs.ModeSymlink != 0 || !d.IsDir() {
			return nil
		}
		if path != absRoot && w.excludeDirs.Match(d.Name()) {
			return filepath.SkipDir
		}
		return w.addWatch(path)
	})
}

// Watching returns the number of watched directories.
func (w *Watcher) Watching() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.paths)
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}
	w.paths[path] = true
	return nil
}

// Run handles events until ctx is cancelled, the watcher is closed or the
// sink stops accepting items.
func (w *Watcher) Run(ctx context.Context, sink Sink) error {
	log := logging.Get("watcher")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if err := w.handleEvent(event, sink); err != nil {
				return err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, sink Sink) error {
	switch {
	case event.Op&fsnotify.Create != 0:
		return w.handleCreate(event.Name, sink)
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// A rename also produces a Create for the new name.
		w.handleRemove(event.Name)
	}
	return nil
}

// handleCreate pushes the new entry. A new directory gains watches and its
// existing contents are pushed too, since they may have arrived before the
// watch did.
func (w *Watcher) handleCreate(path string, sink Sink) error {
	log := logging.Get("watcher")

	info, err := os.Lstat(path)
	if err != nil {
		return nil //nolint:nilerr // gone before we looked
	}

	item := types.Item{
		Path:      path,
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&fs.ModeSymlink != 0,
	}
	if err := sink.Push(item); err != nil {
		return err
	}
	log.Debug("queued new entry", "path", path)

	if !item.IsDir {
		return nil
	}
	if w.excludeDirs.Match(filepath.Base(path)) {
		log.Warn("directory is in exclude list", "path", path)
		return nil
	}
	_ = w.addWatch(path)

	var pushErr error
	_ = filepath.WalkDir(path, func(sub string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || sub == path {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		isLink := d.Type()&fs.ModeSymlink != 0
		if err := sink.Push(types.Item{Path: sub, IsDir: d.IsDir() && !isLink, IsSymlink: isLink}); err != nil {
			pushErr = err
			return fs.SkipAll
		}
		if d.IsDir() && !isLink {
			if w.excludeDirs.Match(d.Name()) {
				return filepath.SkipDir
			}
			_ = w.addWatch(sub)
		}
		return nil
	})
	return pushErr
}

func (w *Watcher) handleRemove(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paths[path] {
		_ = w.watcher.Remove(path)
		delete(w.paths, path)
	}
	for child := range w.paths {
		if isSubPath(child, path) {
			_ = w.watcher.Remove(child)
			delete(w.paths, child)
		}
	}
}

// Close closes the watcher and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.paths = make(map[string]bool)

	err := w.watcher.Close()
	if errors.Is(err, fsnotify.ErrClosed) {
		return nil
	}
	return err
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
