// Package tuner picks worker counts for a run from the detected CPU count.
package tuner

import "runtime"

// Worker limits.
const (
	// maxWorkers caps both pools to avoid excessive context switching.
	maxWorkers = 64

	// minWorkers keeps some I/O overlap on single-core machines.
	minWorkers = 2

	// minWalkWorkers is the floor for fastwalk's listing goroutines.
	minWalkWorkers = 4
)

// Resources describes the machine.
type Resources struct {
	// CPUCores is the number of logical CPU cores available.
	CPUCores int
}

// Config is the tuned worker layout.
type Config struct {
	// Workers is the number of queue workers. Renames and chowns spend most
	// of their time in the kernel, so this runs ahead of the core count.
	Workers int

	// WalkWorkers is fastwalk's goroutine count for the parallel producer.
	WalkWorkers int
}

// Detect returns the resources of the current machine.
func Detect() Resources {
	return Resources{CPUCores: runtime.NumCPU()}
}

// Calculate returns a worker layout for r:
//   - Workers: NumCPU * 2, within [2, 64]
//   - WalkWorkers: max(NumCPU, 4), capped at 64
func Calculate(r Resources) Config {
	workers := min(max(r.CPUCores*2, minWorkers), maxWorkers)
	walk := min(max(r.CPUCores, minWalkWorkers), maxWorkers)
	return Config{Workers: workers, WalkWorkers: walk}
}

// CalculateWithOverride applies a user-supplied worker count. Values <= 0
// keep the calculated count; larger values are capped at 64.
func CalculateWithOverride(r Resources, workers int) Config {
	cfg := Calculate(r)
	if workers > 0 {
		cfg.Workers = min(workers, maxWorkers)
	}
	return cfg
}
