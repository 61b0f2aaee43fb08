// Package output renders the summary of a groom run in the formats selected
// with --output (pretty, plain, json, jsonl, yaml, template).
//
// Formatters are looked up by name in a registry:
//
//	formatter, err := output.Get("pretty")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
//	fmt.Print(buf.String())
package output

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jamesainslie/groom/pkg/groom/types"
)

// Rename is one journaled name change.
type Rename struct {
	Old  string    `json:"old" yaml:"old"`
	New  string    `json:"new" yaml:"new"`
	Time time.Time `json:"time" yaml:"time"`
}

// Result is everything a formatter may show about a run.
type Result struct {
	// RunID identifies the run in logs and the journal.
	RunID string

	// Root is the absolute directory that was processed.
	Root string

	// Action is the per-file action, "strip" or "chown".
	Action string

	// DryRun is set when changes were only logged.
	DryRun bool

	// Stats holds the final counters.
	Stats types.RunStats

	// DirsListed is the number of directories the walker read.
	DirsListed int64

	// WalkErrors is the number of directories that could not be listed.
	WalkErrors int64

	// Interrupted is set when the run was stopped before the queue drained.
	Interrupted bool

	// Renames lists journaled changes, when they were requested.
	Renames []Rename

	// Warnings are shown after the summary.
	Warnings []string
}

// Modified returns the number of changed files and directories.
func (r *Result) Modified() int64 {
	return r.Stats.FilesModified + r.Stats.DirsModified
}

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry manages formatter registration and lookup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]FormatterFactory),
	}
}

// Register adds a formatter factory, replacing any with the same name.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a new formatter instance by name.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown formatter: %s", name)
	}
	return factory(), nil
}

// Available returns a sorted list of all registered formatter names.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
