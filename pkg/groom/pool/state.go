package pool

// WorkerState is where a worker is in its loop.
type WorkerState int32

const (
	// StateIdle means the worker has not started.
	StateIdle WorkerState = iota
	// StateRunning means the worker is taking or processing an item.
	StateRunning
	// StateWaiting means the queue was pending and the worker is backing off.
	StateWaiting
	// StateDone means the worker saw a drained queue or was cancelled.
	StateDone
)

// String returns the state name.
func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}
