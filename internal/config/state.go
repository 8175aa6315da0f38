package config

// State is the health of a Reloader.
type State int32

const (
	// StateLoading means no file contents have been processed yet.
	StateLoading State = iota

	// StateHealthy means the last change was applied.
	StateHealthy

	// StateDegraded means the last change was rejected. The previous
	// configuration remains active.
	StateDegraded

	// StateEmpty means the initial contents were rejected and no valid
	// configuration has been applied yet.
	StateEmpty
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}
