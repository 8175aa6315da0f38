package harvest

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key controller events.
type MetricsProvider interface {
	// OnFetch is called when a collaborator call completes, relevant or not.
	// Op names the call site, e.g. "cascade.district" or "poller".
	OnFetch(op string, duration time.Duration, err error)

	// OnDiscard is called when a completion is ignored because the inputs
	// that produced it were superseded or the view was closed.
	OnDiscard(op string)

	// OnTick is called each time a poller issues a fetch.
	OnTick()
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnFetch(_ string, _ time.Duration, _ error) {}
func (NoOpMetricsProvider) OnDiscard(_ string)                         {}
func (NoOpMetricsProvider) OnTick()                                    {}
