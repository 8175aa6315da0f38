package harvest

// Status represents the lifecycle of one asynchronous request slot:
// a location list, a price lookup, a forecast, a poll, or a narrative.
type Status int32

const (
	// StatusIdle indicates no request has been issued since the slot was
	// last cleared.
	StatusIdle Status = iota

	// StatusLoading indicates a request for the current inputs is outstanding.
	StatusLoading

	// StatusReady indicates the last request for the current inputs succeeded.
	StatusReady

	// StatusFailed indicates the last request for the current inputs failed.
	// Any previously displayed data is governed by the owning controller.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
