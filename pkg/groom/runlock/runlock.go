// Package runlock keeps two groom runs from working on the same root at the
// same time.
package runlock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the lock for a root.
var ErrLocked = errors.New("another groom run is already working on this root")

// Lock is a held per-root lock.
type Lock struct {
	fl   *flock.Flock
	path string
}

// DefaultDir returns the directory lock files are kept in.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, "groom", "locks")
}

// PathFor returns the lock file for root inside dir. The name is the
// SHA-256 of the cleaned absolute root, so any spelling of the same path
// maps to the same file.
func PathFor(dir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return filepath.Join(dir, hex.EncodeToString(sum[:])+".lock"), nil
}

// Acquire takes the lock for root without waiting. If another process holds
// it, the error wraps ErrLocked and names the holder's PID when known.
func Acquire(dir, root string) (*Lock, error) {
	path, err := PathFor(dir, root)
	if err != nil {
		return nil, fmt.Errorf("resolving lock path: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		if pid, err := readPID(path); err == nil {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, pid)
		}
		return nil, ErrLocked
	}

	// The PID is informational only; the flock is what excludes.
	_ = os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)

	return &Lock{fl: fl, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock and removes the lock file.
func (l *Lock) Release() error {
	_ = os.Remove(l.path)
	return l.fl.Unlock()
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
