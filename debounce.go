package harvest

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultQuietPeriod is the default quiet period used by Debouncer and Search.
const DefaultQuietPeriod = 300 * time.Millisecond

// Debouncer delays propagation of a rapidly changing value until it has been
// stable for a quiet period. Every Set cancels the pending update and schedules
// a new one, so a value that never stabilizes never propagates.
//
// The settled value always equals some value that was passed to Set (or the
// initial value). onSettle is invoked, outside the state lock, only when the
// settled value actually changes. Deliveries are serialized with Stop and
// Reset, so onSettle must not call either on its own Debouncer.
//
// Example:
//
//	d := harvest.NewDebouncer("", 300*time.Millisecond, func(q string) {
//	    log.Printf("search for %q", q)
//	})
//	defer d.Stop()
//	d.Set("O")
//	d.Set("On")
//	d.Set("Ong") // one callback, 300ms after this call
type Debouncer[T comparable] struct {
	quiet    time.Duration
	clock    clockz.Clock
	onSettle func(T)
	name     string

	// settling runs between the settle signal and delivery.
	settling func()

	deliver sync.Mutex

	mu      sync.Mutex
	raw     T
	settled T
	gen     uint64
	epoch   uint64
	timer   clockz.Timer
	cancel  chan struct{}
	stopped bool
}

// NewDebouncer creates a Debouncer holding initial as both its raw and settled
// value. A non-positive quiet period falls back to DefaultQuietPeriod.
func NewDebouncer[T comparable](initial T, quiet time.Duration, onSettle func(T)) *Debouncer[T] {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer[T]{
		quiet:    quiet,
		clock:    clockz.RealClock,
		onSettle: onSettle,
		raw:      initial,
		settled:  initial,
	}
}

// Clock sets a custom clock for the quiet-period timer.
// Use this with clockz.FakeClock for deterministic tests. Must be called
// before the first Set.
func (d *Debouncer[T]) Clock(clock clockz.Clock) *Debouncer[T] {
	d.clock = clock
	return d
}

// Name labels the debouncer in emitted signals.
func (d *Debouncer[T]) Name(name string) *Debouncer[T] {
	d.name = name
	return d
}

// Quiet returns the configured quiet period.
func (d *Debouncer[T]) Quiet() time.Duration {
	return d.quiet
}

// Set records a new raw value and restarts the quiet period.
// Calls after Stop are ignored.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.raw = v
	d.cancelLocked()

	d.gen++
	gen := d.gen
	timer := d.clock.NewTimer(d.quiet)
	cancel := make(chan struct{})
	d.timer = timer
	d.cancel = cancel

	go d.wait(timer, cancel, gen)
}

// Reset cancels any pending update and sets both the raw and settled value to
// v without invoking the settle callback. A settle already under way is not
// delivered. Calls after Stop are ignored.
func (d *Debouncer[T]) Reset(v T) {
	d.deliver.Lock()
	defer d.deliver.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()
	d.gen++
	d.epoch++
	d.raw = v
	d.settled = v
}

// Raw returns the most recent value passed to Set.
func (d *Debouncer[T]) Raw() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Settled returns the last value that stayed unchanged for the quiet period.
func (d *Debouncer[T]) Settled() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Pending reports whether an update is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending update. No update fires after Stop returns; a
// delivery in progress finishes first.
func (d *Debouncer[T]) Stop() {
	d.deliver.Lock()
	defer d.deliver.Unlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	d.epoch++
	d.cancelLocked()
}

// cancelLocked stops the outstanding timer and releases its waiter.
func (d *Debouncer[T]) cancelLocked() {
	if d.timer == nil {
		return
	}
	d.timer.Stop()
	close(d.cancel)
	d.timer = nil
	d.cancel = nil
}

// wait blocks until the scheduled timer fires or is canceled.
func (d *Debouncer[T]) wait(timer clockz.Timer, cancel <-chan struct{}, gen uint64) {
	select {
	case <-cancel:
		return
	case <-timer.C():
	}

	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.cancel = nil
	changed := d.raw != d.settled
	d.settled = d.raw
	v := d.settled
	epoch := d.epoch
	d.mu.Unlock()

	if !changed {
		return
	}
	capitan.Emit(context.Background(), DebounceSettled,
		KeyName.Field(d.name),
		KeyDebounce.Field(d.quiet),
	)
	if d.settling != nil {
		d.settling()
	}

	// A Set in between does not cancel v; Reset and Stop do.
	d.deliver.Lock()
	defer d.deliver.Unlock()
	d.mu.Lock()
	current := !d.stopped && epoch == d.epoch
	d.mu.Unlock()
	if current && d.onSettle != nil {
		d.onSettle(v)
	}
}
