package agent

// State is the lifecycle state of a run.
type State int

const (
	// StateRunning is the state while rounds remain.
	StateRunning State = iota

	// StateCompleted means a tool result set task_finished.
	StateCompleted

	// StateExhausted means the round budget ran out first.
	StateExhausted

	// StateAborted means the gateway failed.
	StateAborted

	// StateInterrupted means the run's context was cancelled.
	StateInterrupted
)

// String returns the upper-case state name.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "RUNNING"
	case StateCompleted:
		return "COMPLETED"
	case StateExhausted:
		return "EXHAUSTED"
	case StateAborted:
		return "ABORTED"
	case StateInterrupted:
		return "INTERRUPTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool { return s != StateRunning }
