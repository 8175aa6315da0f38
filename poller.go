package harvest

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultPollInterval is the default interval between poll ticks.
const DefaultPollInterval = 5 * time.Second

// ErrorPolicy decides what happens to the displayed reading when a tick fails.
type ErrorPolicy int

const (
	// PreserveOnError keeps the last good reading and sets the error. Before
	// the first success there is no reading.
	PreserveOnError ErrorPolicy = iota

	// BlankOnError clears the reading and sets the error.
	BlankOnError
)

// String returns the string representation of the policy.
func (p ErrorPolicy) String() string {
	switch p {
	case PreserveOnError:
		return "preserve"
	case BlankOnError:
		return "blank"
	default:
		return "unknown"
	}
}

// Poller fetches a value immediately on Start and then once per interval on a
// fixed cadence, whether or not the previous fetch has completed. Overlapping
// completions are applied in arrival order, so the last response to arrive
// wins even if it was issued earlier.
//
// Stop is deterministic: once it returns no further tick is issued. A fetch
// already in flight still has its result applied. Canceling the context
// passed to Start abandons in-flight fetches and ignores their results.
//
// Example:
//
//	p := harvest.NewPoller(func(ctx context.Context) (Reading, error) {
//	    return sensors.LatestReading(ctx, "farm01")
//	}, 5*time.Second).OnUpdate(func(Reading, error) { view.Notify() })
//	_ = p.Start(view.Context())
//	view.Own(p.Stop)
type Poller[T any] struct {
	fetch        func(ctx context.Context) (T, error)
	interval     time.Duration
	clock        clockz.Clock
	policy       ErrorPolicy
	metrics      MetricsProvider
	onUpdate     func(T, error)
	errorHistory *failureLog
	name         string

	// applyMu serializes result application with its callback so callbacks
	// observe results in arrival order.
	applyMu sync.Mutex

	mu       sync.Mutex
	started  bool
	stopped  bool
	current  *T
	lastErr  error
	status   Status
	ticks    int
	arrivals int
	stop     chan struct{}
	done     chan struct{}
}

// NewPoller creates a Poller. A non-positive interval falls back to
// DefaultPollInterval.
func NewPoller[T any](fetch func(ctx context.Context) (T, error), interval time.Duration) *Poller[T] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller[T]{
		fetch:    fetch,
		interval: interval,
		clock:    clockz.RealClock,
		metrics:  NoOpMetricsProvider{},
	}
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Clock sets a custom clock for the ticker.
// Use this with clockz.FakeClock for deterministic tests. Must be called before Start().
func (p *Poller[T]) Clock(clock clockz.Clock) *Poller[T] {
	p.clock = clock
	return p
}

// Policy sets the error policy. Default: PreserveOnError. Must be called before Start().
func (p *Poller[T]) Policy(policy ErrorPolicy) *Poller[T] {
	p.policy = policy
	return p
}

// Metrics sets a metrics provider. Must be called before Start().
func (p *Poller[T]) Metrics(provider MetricsProvider) *Poller[T] {
	p.metrics = provider
	return p
}

// OnUpdate sets a callback invoked with every applied tick result: the fetched
// value on success, or the zero value and the error on failure.
// Must be called before Start().
func (p *Poller[T]) OnUpdate(fn func(T, error)) *Poller[T] {
	p.onUpdate = fn
	return p
}

// Name labels the poller in emitted signals.
func (p *Poller[T]) Name(name string) *Poller[T] {
	p.name = name
	return p
}

// ErrorHistorySize sets the number of recent tick errors to retain.
// Use 0 (default) to only retain the most recent error via LastError().
// Must be called before Start().
func (p *Poller[T]) ErrorHistorySize(n int) *Poller[T] {
	p.errorHistory = newFailureLog(n)
	return p
}

// Interval returns the configured interval.
func (p *Poller[T]) Interval() time.Duration {
	return p.interval
}

// Start issues the first fetch immediately and schedules the rest.
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.started = true
	p.status = StatusLoading
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.mu.Unlock()

	capitan.Emit(ctx, PollerStarted,
		KeyName.Field(p.name),
		KeyInterval.Field(p.interval),
	)

	ticker := p.clock.NewTicker(p.interval)
	p.launch(ctx)
	go p.loop(ctx, ticker)
	return nil
}

// Stop ends the polling schedule. No tick is issued after Stop returns.
// It is safe to call Stop more than once or before Start.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	capitan.Emit(context.Background(), PollerStopped,
		KeyName.Field(p.name),
		KeyTick.Field(p.Ticks()),
	)
}

// Current returns the displayed reading and true, or the zero value and false
// if there is none.
func (p *Poller[T]) Current() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		var zero T
		return zero, false
	}
	return *p.current, true
}

// LastError returns the error of the last applied tick, or nil if it succeeded.
func (p *Poller[T]) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ErrorHistory returns the failures since the last successful tick, oldest
// first, each prefixed with its tick number. Returns nil if error history is
// not enabled (see ErrorHistorySize).
func (p *Poller[T]) ErrorHistory() []error {
	return p.errorHistory.errors()
}

// Status returns StatusLoading until the first tick result arrives, then the
// outcome of the most recently applied tick.
func (p *Poller[T]) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Ticks returns the number of fetches issued.
func (p *Poller[T]) Ticks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ticks
}

// Arrivals returns the number of tick results applied.
func (p *Poller[T]) Arrivals() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.arrivals
}

// loop turns ticker events into fetches until stopped.
func (p *Poller[T]) loop(ctx context.Context, ticker clockz.Ticker) {
	defer close(p.done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C():
			p.launch(ctx)
		}
	}
}

// launch issues one fetch unless the poller has been stopped.
func (p *Poller[T]) launch(ctx context.Context) {
	p.mu.Lock()
	if p.stopped || ctx.Err() != nil {
		p.mu.Unlock()
		return
	}
	p.ticks++
	n := p.ticks
	p.mu.Unlock()

	p.metrics.OnTick()
	go p.tick(ctx, n)
}

// tick performs one fetch and applies its result in arrival order.
func (p *Poller[T]) tick(ctx context.Context, n int) {
	start := p.clock.Now()
	v, err := p.fetch(ctx)
	p.metrics.OnFetch("poller", p.clock.Since(start), err)

	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	if ctx.Err() != nil {
		p.mu.Unlock()
		p.metrics.OnDiscard("poller")
		return
	}
	p.arrivals++
	if err != nil {
		p.lastErr = err
		p.status = StatusFailed
		if p.policy == BlankOnError {
			p.current = nil
		}
	} else {
		p.current = &v
		p.lastErr = nil
		p.status = StatusReady
	}
	p.mu.Unlock()

	if err != nil {
		p.errorHistory.record(n, err)
		capitan.Emit(ctx, PollerTickFailed,
			KeyName.Field(p.name),
			KeyTick.Field(n),
			KeyError.Field(err.Error()),
		)
	} else {
		p.errorHistory.reset()
		capitan.Emit(ctx, PollerTickApplied,
			KeyName.Field(p.name),
			KeyTick.Field(n),
		)
	}
	if p.onUpdate != nil {
		if err != nil {
			var zero T
			p.onUpdate(zero, err)
			return
		}
		p.onUpdate(v, nil)
	}
}
