// Package types provides core data types for groom.
// It includes the work item that flows through the queue, run statistics,
// and helpers for parsing and formatting sizes, counts, and elapsed times.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Item is a single filesystem path discovered during traversal.
// Items are immutable once enqueued.
type Item struct {
	// Path is the absolute path of the entry.
	Path string `json:"path"`

	// IsDir records whether the entry was a directory when it was discovered.
	IsDir bool `json:"is_dir"`

	// IsSymlink marks a symbolic link. With IsDir set it is a followed link
	// to a directory, and is handled as that directory.
	IsSymlink bool `json:"is_symlink,omitempty"`
}

// String returns the item path.
func (i Item) String() string {
	return i.Path
}

// RunStats is a point-in-time snapshot of the run counters.
// Snapshots taken while workers are running may be slightly inconsistent
// across fields; each field on its own is exact.
type RunStats struct {
	// FilesSeen is the number of non-hidden, non-excluded files examined.
	FilesSeen int64 `json:"files_seen"`

	// DirsSeen is the number of directories examined.
	DirsSeen int64 `json:"dirs_seen"`

	// FilesModified is the number of files the action changed.
	FilesModified int64 `json:"files_modified"`

	// DirsModified is the number of directories the action changed.
	DirsModified int64 `json:"dirs_modified"`

	// BytesSeen is the total size of all files examined.
	BytesSeen int64 `json:"bytes_seen"`

	// Failed is the number of items that could not be processed.
	Failed int64 `json:"failed"`

	// Elapsed is the time since the run started.
	Elapsed time.Duration `json:"elapsed"`
}

// elapsedUnits lists the units used by FormatElapsed, largest first.
var elapsedUnits = []struct {
	suffix  string
	seconds int64
}{
	{"w", 7 * 24 * 60 * 60},
	{"d", 24 * 60 * 60},
	{"h", 60 * 60},
	{"m", 60},
	{"s", 1},
}

// FormatElapsed renders a duration using its two largest nonzero units
// out of weeks, days, hours, minutes and seconds.
//
// Examples:
//   - FormatElapsed(0) returns "0s"
//   - FormatElapsed(75*time.Second) returns "1m 15s"
//   - FormatElapsed(26*time.Hour + 5*time.Minute + 3*time.Second) returns "1d 2h"
func FormatElapsed(d time.Duration) string {
	remaining := int64(d / time.Second)
	if remaining <= 0 {
		return "0s"
	}

	parts := make([]string, 0, 2)
	for _, unit := range elapsedUnits {
		value := remaining / unit.seconds
		if value == 0 {
			continue
		}
		remaining -= value * unit.seconds
		parts = append(parts, strconv.FormatInt(value, 10)+unit.suffix)
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It accepts plain byte counts ("1024") and K, M, G, T suffixes with optional
// B or iB ("100K", "50MB", "2GiB"). Units are binary.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using IEC units.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
