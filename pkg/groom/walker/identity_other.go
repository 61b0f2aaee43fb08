//go:build !unix

package walker

import "io/fs"

type fileID struct{}

// identity is unavailable here, so followed-link cycles are not detected.
func identity(fs.FileInfo) (fileID, bool) {
	return fileID{}, false
}
