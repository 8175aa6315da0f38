package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"

	"github.com/agriinsight/harvest"
)

// DefaultDebounce coalesces the burst of events editors produce per save.
const DefaultDebounce = 100 * time.Millisecond

var applyID = pipz.NewIdentity("config:apply", "Hands an accepted configuration to the application")

// Validator is implemented by configuration types a Reloader can check.
type Validator interface {
	Validate() error
}

// Change is one accepted configuration transition.
type Change[T any] struct {
	Previous T
	Current  T
	Raw      []byte
}

// Reloader watches a source, decodes and validates each new version, and
// hands accepted versions to a callback. A rejected version leaves the
// previous one active.
type Reloader[T Validator] struct {
	watcher  Watcher
	pipeline pipz.Chainable[*Change[T]]
	codec    Codec
	debounce time.Duration
	clock    clockz.Clock
	base     func() T
	prepare  func(*T) error

	state     atomic.Int32
	current   atomic.Pointer[T]
	lastError atomic.Pointer[error]

	mu      sync.Mutex
	started bool
}

// NewReloader creates a Reloader over watcher. fn receives the previously
// applied value (zero on first load) and the new one; returning an error
// rejects the new value.
func NewReloader[T Validator](watcher Watcher, fn func(ctx context.Context, prev, curr T) error) *Reloader[T] {
	r := &Reloader[T]{
		watcher: watcher,
		pipeline: pipz.Effect(applyID, func(ctx context.Context, c *Change[T]) error {
			return fn(ctx, c.Previous, c.Current)
		}),
		codec:    YAMLCodec{},
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
	}
	r.state.Store(int32(StateLoading))
	return r
}

// Codec sets the decoder for raw contents. Default: YAMLCodec.
func (r *Reloader[T]) Codec(codec Codec) *Reloader[T] {
	r.codec = codec
	return r
}

// Debounce sets how long contents must stay unchanged before they are
// processed. Does not apply to the initial contents.
func (r *Reloader[T]) Debounce(d time.Duration) *Reloader[T] {
	r.debounce = d
	return r
}

// Clock sets the clock used for debouncing.
func (r *Reloader[T]) Clock(clock clockz.Clock) *Reloader[T] {
	r.clock = clock
	return r
}

// Base sets the value contents are decoded onto, so that absent keys keep
// their defaults.
func (r *Reloader[T]) Base(fn func() T) *Reloader[T] {
	r.base = fn
	return r
}

// Prepare sets a hook run after decoding and before validation.
func (r *Reloader[T]) Prepare(fn func(*T) error) *Reloader[T] {
	r.prepare = fn
	return r
}

// State returns the current state.
func (r *Reloader[T]) State() State {
	return State(r.state.Load())
}

// Current returns the last applied value.
func (r *Reloader[T]) Current() (T, bool) {
	if p := r.current.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// LastError returns the error of the most recent rejected version, or nil
// once a later version is applied.
func (r *Reloader[T]) LastError() error {
	if p := r.lastError.Load(); p != nil {
		return *p
	}
	return nil
}

// Start begins watching. It processes the initial contents synchronously and
// returns their error, then continues in the background until ctx is done.
// Start can only be called once.
func (r *Reloader[T]) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("reloader already started")
	}
	r.started = true
	r.mu.Unlock()

	capitan.Emit(ctx, ReloadStarted, harvest.KeyDebounce.Field(r.debounce))

	changes, err := r.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	var raw []byte
	select {
	case <-ctx.Done():
		return ctx.Err()
	case v, ok := <-changes:
		if !ok {
			return errors.New("watcher closed before emitting initial contents")
		}
		raw = v
	}
	initialErr := r.process(ctx, raw)

	go r.watch(ctx, changes, raw)
	return initialErr
}

// watch debounces changes until the channel closes or ctx is done.
// Contents identical to the last processed version are skipped.
func (r *Reloader[T]) watch(ctx context.Context, changes <-chan []byte, initial []byte) {
	d := harvest.NewDebouncer(string(initial), r.debounce, func(v string) {
		_ = r.process(ctx, []byte(v)) // errors surface through State and signals
	}).Clock(r.clock).Name("config")

	defer func() {
		d.Stop()
		capitan.Emit(context.Background(), ReloadStopped, KeyState.Field(r.State().String()))
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-changes:
			if !ok {
				return
			}
			d.Set(string(raw))
		}
	}
}

func (r *Reloader[T]) process(ctx context.Context, raw []byte) error {
	old := r.State()

	var next T
	if r.base != nil {
		next = r.base()
	}
	if err := r.codec.Unmarshal(raw, &next); err != nil {
		return r.reject(ctx, old, "decode", err)
	}
	if r.prepare != nil {
		if err := r.prepare(&next); err != nil {
			return r.reject(ctx, old, "prepare", err)
		}
	}
	if err := next.Validate(); err != nil {
		return r.reject(ctx, old, "validate", err)
	}

	var prev T
	if p := r.current.Load(); p != nil {
		prev = *p
	}
	change, err := r.pipeline.Process(ctx, &Change[T]{Previous: prev, Current: next, Raw: raw})
	if err != nil {
		var perr *pipz.Error[*Change[T]]
		if errors.As(err, &perr) && perr.Err != nil {
			err = perr.Err
		}
		return r.reject(ctx, old, "apply", err)
	}

	r.current.Store(&change.Current)
	r.lastError.Store(nil)
	r.transition(ctx, old, StateHealthy)
	capitan.Emit(ctx, ReloadApplied)
	return nil
}

func (r *Reloader[T]) reject(ctx context.Context, old State, stage string, err error) error {
	r.lastError.Store(&err)
	next := StateDegraded
	if r.current.Load() == nil {
		next = StateEmpty
	}
	r.transition(ctx, old, next)
	capitan.Emit(ctx, ReloadRejected,
		KeyStage.Field(stage),
		harvest.KeyError.Field(err.Error()),
	)
	return fmt.Errorf("%s failed: %w", stage, err)
}

func (r *Reloader[T]) transition(ctx context.Context, old, next State) {
	if old == next {
		return
	}
	r.state.Store(int32(next))
	capitan.Emit(ctx, ReloadStateChanged,
		KeyOldState.Field(old.String()),
		KeyNewState.Field(next.String()),
	)
}

// Watch starts a Reloader for the YAML file at path. Each version is decoded
// over Defaults, overlaid with the environment, and validated before fn sees
// it.
func Watch(ctx context.Context, path string, fn func(ctx context.Context, prev, curr Config) error) (*Reloader[Config], error) {
	r := NewReloader[Config](NewFileWatcher(path), fn).
		Base(Defaults).
		Prepare(func(c *Config) error { return c.applyEnv(os.LookupEnv) })
	err := r.Start(ctx)
	return r, err
}
