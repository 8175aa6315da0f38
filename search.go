package harvest

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultMinQueryLength is the shortest settled query that triggers a lookup.
const DefaultMinQueryLength = 2

// Search turns keystrokes into lookups against a remote index. The raw query
// feeds a Debouncer; each settled query of at least MinLength runes issues one
// lookup. Results are only ever those of the current settled query: a response
// for a superseded query is discarded.
//
// Lookup failures are swallowed and yield an empty result set. Selecting a
// result clears the query and the results, and any lookup still in flight is
// abandoned.
//
// Example:
//
//	s := harvest.NewSearch(view.Context(), backend.Search).OnChange(view.Notify)
//	view.Own(s.Stop)
//	s.Type("Ong")
//	// 300ms later one lookup for "Ong" is issued
type Search[R any] struct {
	lookup   func(ctx context.Context, query string) ([]R, error)
	scope    context.Context
	quiet    time.Duration
	minLen   int
	clock    clockz.Clock
	metrics  MetricsProvider
	onChange func()

	once      sync.Once
	debouncer *Debouncer[string]

	mu        sync.Mutex
	results   []R
	searching bool
	gen       uint64
	cancel    context.CancelFunc
	selected  *R
	picks     uint64
	typedAt   uint64
}

// NewSearch creates a Search whose lookups live no longer than scope.
func NewSearch[R any](scope context.Context, lookup func(ctx context.Context, query string) ([]R, error)) *Search[R] {
	return &Search[R]{
		lookup:  lookup,
		scope:   scope,
		quiet:   DefaultQuietPeriod,
		minLen:  DefaultMinQueryLength,
		clock:   clockz.RealClock,
		metrics: NoOpMetricsProvider{},
	}
}

// Debounce sets the quiet period. Default: 300ms. Must be called before Type.
func (s *Search[R]) Debounce(d time.Duration) *Search[R] {
	s.quiet = d
	return s
}

// MinLength sets the shortest query, in runes, that triggers a lookup.
// Default: 2. Must be called before Type.
func (s *Search[R]) MinLength(n int) *Search[R] {
	s.minLen = n
	return s
}

// Clock sets the clock for the debounce timer. Must be called before Type.
func (s *Search[R]) Clock(clock clockz.Clock) *Search[R] {
	s.clock = clock
	return s
}

// Metrics sets a metrics provider.
func (s *Search[R]) Metrics(provider MetricsProvider) *Search[R] {
	s.metrics = provider
	return s
}

// OnChange sets the callback invoked after every state change.
func (s *Search[R]) OnChange(fn func()) *Search[R] {
	s.onChange = fn
	return s
}

func (s *Search[R]) input() *Debouncer[string] {
	s.once.Do(func() {
		s.debouncer = NewDebouncer("", s.quiet, s.settle).Clock(s.clock).Name("search")
	})
	return s.debouncer
}

// Type records a keystroke. The lookup, if any, follows the quiet period.
func (s *Search[R]) Type(query string) {
	if s.scope.Err() != nil {
		return
	}
	s.mu.Lock()
	s.typedAt = s.picks
	s.mu.Unlock()
	s.input().Set(query)
	s.notify()
}

// Query returns the raw query as typed.
func (s *Search[R]) Query() string {
	return s.input().Raw()
}

// Settled returns the debounced query.
func (s *Search[R]) Settled() string {
	return s.input().Settled()
}

// Results returns the results of the current settled query.
func (s *Search[R]) Results() []R {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]R(nil), s.results...)
}

// Searching reports whether a lookup for the current settled query is outstanding.
func (s *Search[R]) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// Selected returns the last committed selection.
func (s *Search[R]) Selected() (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		var zero R
		return zero, false
	}
	return *s.selected, true
}

// Select commits r as the selection, clears the query and the results, and
// abandons any outstanding lookup.
func (s *Search[R]) Select(r R) {
	s.input().Reset("")

	s.mu.Lock()
	s.invalidateLocked()
	s.results = nil
	s.selected = &r
	s.picks++
	s.mu.Unlock()

	s.notify()
}

// Stop cancels the pending debounce and abandons any outstanding lookup.
func (s *Search[R]) Stop() {
	s.input().Stop()
	s.mu.Lock()
	s.invalidateLocked()
	s.mu.Unlock()
}

// invalidateLocked makes any outstanding lookup irrelevant.
func (s *Search[R]) invalidateLocked() {
	s.gen++
	s.searching = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// settle runs when the debounced query changes. A query that is no longer the
// settled one, or that was typed before the last Select, issues nothing.
func (s *Search[R]) settle(query string) {
	if s.scope.Err() != nil || query != s.input().Settled() {
		return
	}
	q := strings.TrimSpace(query)

	s.mu.Lock()
	if s.typedAt != s.picks {
		s.mu.Unlock()
		return
	}
	s.invalidateLocked()
	if utf8.RuneCountInString(q) < s.minLen {
		s.results = nil
		s.mu.Unlock()
		s.notify()
		return
	}
	ctx, cancel := context.WithCancel(s.scope)
	s.cancel = cancel
	s.searching = true
	gen := s.gen
	s.mu.Unlock()

	s.notify()
	go s.run(ctx, cancel, q, gen)
}

// run performs one lookup and applies it if its query is still current.
func (s *Search[R]) run(ctx context.Context, cancel context.CancelFunc, query string, gen uint64) {
	defer cancel()
	capitan.Emit(ctx, SearchLookupStarted,
		KeyQuery.Field(query),
		KeyGeneration.Field(int(gen)),
	)

	start := s.clock.Now()
	results, err := s.lookup(ctx, query)
	s.metrics.OnFetch("search", s.clock.Since(start), err)

	s.mu.Lock()
	if s.scope.Err() != nil || gen != s.gen {
		s.mu.Unlock()
		s.metrics.OnDiscard("search")
		capitan.Emit(context.Background(), SearchLookupDiscarded,
			KeyQuery.Field(query),
			KeyGeneration.Field(int(gen)),
		)
		return
	}
	s.cancel = nil
	s.searching = false
	if err != nil {
		s.results = nil
	} else {
		s.results = results
	}
	s.mu.Unlock()

	if err != nil {
		capitan.Emit(ctx, SearchLookupFailed,
			KeyQuery.Field(query),
			KeyError.Field(err.Error()),
		)
	} else {
		capitan.Emit(ctx, SearchLookupApplied,
			KeyQuery.Field(query),
			KeyCount.Field(len(results)),
		)
	}
	s.notify()
}

func (s *Search[R]) notify() {
	if s.onChange != nil && s.scope.Err() == nil {
		s.onChange()
	}
}
