//go:build unix

package walker

import (
	"io/fs"
	"syscall"
)

// fileID identifies a directory independently of the path used to reach it.
type fileID struct {
	dev uint64
	ino uint64
}

// identity returns the device and inode of info.
func identity(info fs.FileInfo) (fileID, bool) {
	if info == nil {
		return fileID{}, false
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, true //nolint:unconvert // Dev is int32 on darwin
}
