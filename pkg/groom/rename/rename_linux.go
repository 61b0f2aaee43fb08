//go:build linux

package rename

import (
	"errors"

	"golang.org/x/sys/unix"
)

// renameNoReplace renames with RENAME_NOREPLACE so an existing target is
// never overwritten. Filesystems that reject the flag get the fallback.
func renameNoReplace(oldPath, newPath string) error {
	err := unix.Renameat2(unix.AT_FDCWD, oldPath, unix.AT_FDCWD, newPath, unix.RENAME_NOREPLACE)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EEXIST):
		return ErrTargetExists
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOSYS), errors.Is(err, unix.ENOTSUP):
		return renameFallback(oldPath, newPath)
	default:
		return err
	}
}
