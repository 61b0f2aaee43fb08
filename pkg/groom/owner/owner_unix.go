//go:build unix

package owner

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/jamesainslie/groom/pkg/groom/logging"
	"github.com/jamesainslie/groom/pkg/groom/types"
)

// Process remaps the owner and group of item.
func (r *Remapper) Process(_ context.Context, item types.Item) (bool, error) {
	info, err := os.Lstat(item.Path)
	if err != nil {
		return false, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false, ErrUnsupported
	}

	uid, gid := int(stat.Uid), int(stat.Gid)
	newUID, newGID, changed := r.target(uid, gid)
	if !changed {
		return false, nil
	}

	log := logging.Get("owner")
	if r.opts.DryRun {
		log.Info("would change owner", "path", item.Path,
			"uid", uid, "new_uid", newUID, "gid", gid, "new_gid", newGID)
		return true, nil
	}

	if err := unix.Lchown(item.Path, newUID, newGID); err != nil {
		return false, fmt.Errorf("chown %s: %w", item.Path, err)
	}
	log.Debug("owner changed", "path", item.Path,
		"uid", uid, "new_uid", newUID, "gid", gid, "new_gid", newGID)
	return true, nil
}
