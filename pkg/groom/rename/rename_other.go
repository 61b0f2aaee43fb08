//go:build !linux

package rename

func renameNoReplace(oldPath, newPath string) error {
	return renameFallback(oldPath, newPath)
}
