package walker

import (
	"io/fs"
	"sync"
)

// visitedSet records the directories a walk has entered, keyed by device and
// inode, so a directory reachable through several followed links is listed
// once. It is safe for concurrent use. A nil set claims everything.
type visitedSet struct {
	mu   sync.Mutex
	seen map[fileID]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[fileID]struct{})}
}

// claim records info's directory and reports whether it was new. Entries
// without an identity are always new.
func (v *visitedSet) claim(info fs.FileInfo) bool {
	if v == nil {
		return true
	}
	id, ok := identity(info)
	if !ok {
		return true
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, seen := v.seen[id]; seen {
		return false
	}
	v.seen[id] = struct{}{}
	return true
}
