package harvest

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Rank is a level in the location hierarchy.
type Rank int

const (
	// RankState is the root level; its choices need no parent.
	RankState Rank = iota

	// RankDistrict choices are fetched for a selected state.
	RankDistrict

	// RankMarket choices are fetched for a selected district.
	RankMarket
)

const rankCount = 3

// String returns the string representation of the rank.
func (r Rank) String() string {
	switch r {
	case RankState:
		return "state"
	case RankDistrict:
		return "district"
	case RankMarket:
		return "market"
	default:
		return "unknown"
	}
}

// CascadeSource supplies the choice set of each level.
type CascadeSource interface {
	States(ctx context.Context) ([]string, error)
	Districts(ctx context.Context, state string) ([]string, error)
	Markets(ctx context.Context, district string) ([]string, error)
}

// level is the mutable state of one rank.
type level struct {
	options  []string
	selected string
	status   Status
	err      error
	gen      uint64
	cancel   context.CancelFunc
}

// LevelSnapshot is an immutable copy of one rank.
type LevelSnapshot struct {
	Options  []string
	Selected string
	Status   Status
	Err      error
}

// Loading reports whether a fetch for this level is outstanding.
func (l LevelSnapshot) Loading() bool { return l.Status == StatusLoading }

// CascadeSnapshot is an immutable copy of the whole selection.
type CascadeSnapshot struct {
	State    LevelSnapshot
	District LevelSnapshot
	Market   LevelSnapshot
}

// Level returns the snapshot of rank r.
func (s CascadeSnapshot) Level(r Rank) LevelSnapshot {
	switch r {
	case RankDistrict:
		return s.District
	case RankMarket:
		return s.Market
	default:
		return s.State
	}
}

// Cascade maintains a chain of dependent choice sets: states, districts of the
// selected state, and markets of the selected district.
//
// Changing a level clears every level below it synchronously and issues exactly
// one fetch for the level directly below. Every fetch is tagged with the
// generation of its level; a response is applied only if that generation is
// still current when it arrives, so a slow response for a previously selected
// parent can never overwrite the choices of the current one.
//
// Example:
//
//	c := harvest.NewCascade(view.Context(), backend).OnChange(view.Notify)
//	c.Load()
//	_ = c.SelectState("Andhra Pradesh")
//	// ... districts arrive ...
//	_ = c.SelectDistrict("Prakasam")
type Cascade struct {
	src      CascadeSource
	scope    context.Context
	clock    clockz.Clock
	metrics  MetricsProvider
	onChange func()

	mu     sync.Mutex
	levels [rankCount]level
}

// NewCascade creates a Cascade whose fetches live no longer than scope.
func NewCascade(scope context.Context, src CascadeSource) *Cascade {
	return &Cascade{
		src:     src,
		scope:   scope,
		clock:   clockz.RealClock,
		metrics: NoOpMetricsProvider{},
	}
}

// OnChange sets the callback invoked after every state change.
func (c *Cascade) OnChange(fn func()) *Cascade {
	c.onChange = fn
	return c
}

// Clock sets the clock used to time fetches.
func (c *Cascade) Clock(clock clockz.Clock) *Cascade {
	c.clock = clock
	return c
}

// Metrics sets a metrics provider.
func (c *Cascade) Metrics(provider MetricsProvider) *Cascade {
	c.metrics = provider
	return c
}

// Load fetches the root choice set. Calling it again reloads the states
// without touching lower levels.
func (c *Cascade) Load() {
	c.mu.Lock()
	if c.scope.Err() != nil {
		c.mu.Unlock()
		return
	}
	c.fetchLocked(RankState, "")
	c.mu.Unlock()
	c.notify()
}

// SelectState selects a state. Selecting the current state is a no-op.
// Selecting "" clears the district and market levels without fetching.
func (c *Cascade) SelectState(state string) error {
	return c.selectLevel(RankState, state)
}

// SelectDistrict selects a district of the selected state. It returns
// ErrNotReady if no state is selected.
func (c *Cascade) SelectDistrict(district string) error {
	return c.selectLevel(RankDistrict, district)
}

// SelectMarket selects a market of the selected district. It is terminal and
// issues no fetch. It returns ErrNotReady if no district is selected.
func (c *Cascade) SelectMarket(market string) error {
	return c.selectLevel(RankMarket, market)
}

// selectLevel commits a selection at rank r and cascades the reset downward.
func (c *Cascade) selectLevel(r Rank, value string) error {
	c.mu.Lock()
	if c.scope.Err() != nil {
		c.mu.Unlock()
		return ErrClosed
	}
	if r > RankState && value != "" && c.levels[r-1].selected == "" {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.levels[r].selected == value {
		c.mu.Unlock()
		return nil
	}

	c.levels[r].selected = value
	for below := r + 1; below < rankCount; below++ {
		c.resetLocked(below)
	}
	if r+1 < rankCount && value != "" {
		c.fetchLocked(r+1, value)
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

// Complete reports whether every level has a selection.
func (c *Cascade) Complete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levels[RankMarket].selected != ""
}

// Selection returns the current (state, district, market) triple.
func (c *Cascade) Selection() (state, district, market string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.levels[RankState].selected, c.levels[RankDistrict].selected, c.levels[RankMarket].selected
}

// Snapshot returns an immutable copy of all levels.
func (c *Cascade) Snapshot() CascadeSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CascadeSnapshot{
		State:    c.levels[RankState].snapshot(),
		District: c.levels[RankDistrict].snapshot(),
		Market:   c.levels[RankMarket].snapshot(),
	}
}

func (l *level) snapshot() LevelSnapshot {
	var opts []string
	if l.options != nil {
		opts = append([]string(nil), l.options...)
	}
	return LevelSnapshot{
		Options:  opts,
		Selected: l.selected,
		Status:   l.status,
		Err:      l.err,
	}
}

// resetLocked clears rank r and invalidates its outstanding fetch.
func (c *Cascade) resetLocked(r Rank) {
	l := &c.levels[r]
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.options = nil
	l.selected = ""
	l.status = StatusIdle
	l.err = nil
}

// fetchLocked issues the single fetch for rank r keyed by its parent selection.
func (c *Cascade) fetchLocked(r Rank, key string) {
	l := &c.levels[r]
	l.gen++
	if l.cancel != nil {
		l.cancel()
	}
	ctx, cancel := context.WithCancel(c.scope)
	l.cancel = cancel
	l.status = StatusLoading
	l.err = nil
	gen := l.gen

	go c.run(ctx, cancel, r, key, gen)
}

// run performs one fetch and applies it if still relevant.
func (c *Cascade) run(ctx context.Context, cancel context.CancelFunc, r Rank, key string, gen uint64) {
	defer cancel()
	capitan.Emit(ctx, CascadeFetchStarted,
		KeyRank.Field(r.String()),
		KeyKey.Field(key),
		KeyGeneration.Field(int(gen)),
	)

	start := c.clock.Now()
	var (
		options []string
		err     error
	)
	switch r {
	case RankState:
		options, err = c.src.States(ctx)
	case RankDistrict:
		options, err = c.src.Districts(ctx, key)
	case RankMarket:
		options, err = c.src.Markets(ctx, key)
	}
	op := "cascade." + r.String()
	c.metrics.OnFetch(op, c.clock.Since(start), err)

	c.mu.Lock()
	l := &c.levels[r]
	if c.scope.Err() != nil || gen != l.gen {
		c.mu.Unlock()
		c.metrics.OnDiscard(op)
		capitan.Emit(context.Background(), CascadeFetchDiscarded,
			KeyRank.Field(r.String()),
			KeyKey.Field(key),
			KeyGeneration.Field(int(gen)),
		)
		return
	}
	l.cancel = nil
	if err != nil {
		l.options = nil
		l.status = StatusFailed
		l.err = err
	} else {
		l.options = options
		l.status = StatusReady
		l.err = nil
	}
	c.mu.Unlock()

	if err != nil {
		capitan.Emit(ctx, CascadeFetchFailed,
			KeyRank.Field(r.String()),
			KeyKey.Field(key),
			KeyError.Field(err.Error()),
		)
	} else {
		capitan.Emit(ctx, CascadeFetchApplied,
			KeyRank.Field(r.String()),
			KeyKey.Field(key),
			KeyCount.Field(len(options)),
		)
	}
	c.notify()
}

func (c *Cascade) notify() {
	if c.onChange != nil && c.scope.Err() == nil {
		c.onChange()
	}
}
