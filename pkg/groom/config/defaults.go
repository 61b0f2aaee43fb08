// Package config provides configuration management for groom.
package config

import "time"

// Default configuration values for groom.
const (
	// DefaultSubstring is removed from file names by the strip action.
	DefaultSubstring = " - "

	// DefaultAction is the per-file action.
	DefaultAction = ActionStrip

	// DefaultPollInterval caps a worker's wait on a pending queue.
	DefaultPollInterval = 2 * time.Second

	// DefaultProgressInterval throttles the status line. Zero redraws it
	// after every item.
	DefaultProgressInterval = 100 * time.Millisecond

	// DefaultOutput is the summary format.
	DefaultOutput = "pretty"

	// DefaultLogMaxSize is the size at which the log file rotates.
	DefaultLogMaxSize = "300MiB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 7
)

// Actions
const (
	ActionStrip = "strip"
	ActionChown = "chown"
)

// DefaultExcludeDirs are directory names that are listed but never entered.
var DefaultExcludeDirs = []string{".snapshot"}

// DefaultExcludeFiles are file names that are never processed.
var DefaultExcludeFiles = []string{".DS_Store"}
