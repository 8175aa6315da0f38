package harvest

import (
	"context"
	"strings"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Advisory is a two-stage pipeline. Stage one holds structured data, loaded
// with Load or pushed with Replace. Stage two is a narrative derived from that
// data on user request.
//
// The narrative is only requestable while stage one holds non-empty data, at
// most one narrative request is outstanding, and replacing the stage-one data
// clears the narrative. A narrative produced for data that has since been
// replaced is discarded. A narrative failure never touches stage-one data.
//
// Example:
//
//	a := harvest.NewAdvisory(view.Context(), func(ctx context.Context, f Forecast, commodity string) (string, error) {
//	    return narrator.Generate(ctx, systemPrompt, prompt(f, commodity))
//	}).OnChange(view.Notify)
//	a.Load(func(ctx context.Context) (Forecast, error) { return forecasts.Predict(ctx, "Onion", "Ongole") })
//	// ... data arrives ...
//	_ = a.Request("Onion")
type Advisory[D any] struct {
	narrate  func(ctx context.Context, data D, param string) (string, error)
	scope    context.Context
	clock    clockz.Clock
	metrics  MetricsProvider
	onChange func()
	empty    func(D) bool
	equal    func(a, b D) bool

	mu         sync.Mutex
	data       *D
	dataStatus Status
	dataErr    error
	dataGen    uint64
	dataCancel context.CancelFunc

	text       string
	textStatus Status
	textErr    error
	textCancel context.CancelFunc
	param      string
}

// AdvisorySnapshot is an immutable copy of both stages.
type AdvisorySnapshot[D any] struct {
	Data       D
	HasData    bool
	DataStatus Status
	DataErr    error

	Text       string
	TextStatus Status
	TextErr    error
	Param      string
}

// NewAdvisory creates an Advisory whose requests live no longer than scope.
func NewAdvisory[D any](scope context.Context, narrate func(ctx context.Context, data D, param string) (string, error)) *Advisory[D] {
	return &Advisory[D]{
		narrate: narrate,
		scope:   scope,
		clock:   clockz.RealClock,
		metrics: NoOpMetricsProvider{},
	}
}

// Empty sets the predicate deciding whether stage-one data is empty.
// Empty data does not enable the narrative. Default: never empty.
func (a *Advisory[D]) Empty(fn func(D) bool) *Advisory[D] {
	a.empty = fn
	return a
}

// Equal sets the predicate Replace uses to decide whether new data differs
// from the current data. Unchanged data keeps the narrative. Default: every
// replacement counts as a change.
func (a *Advisory[D]) Equal(fn func(a, b D) bool) *Advisory[D] {
	a.equal = fn
	return a
}

// Clock sets the clock used to time requests.
func (a *Advisory[D]) Clock(clock clockz.Clock) *Advisory[D] {
	a.clock = clock
	return a
}

// Metrics sets a metrics provider.
func (a *Advisory[D]) Metrics(provider MetricsProvider) *Advisory[D] {
	a.metrics = provider
	return a
}

// OnChange sets the callback invoked after every state change.
func (a *Advisory[D]) OnChange(fn func()) *Advisory[D] {
	a.onChange = fn
	return a
}

// Load starts a new stage-one request. Current data and narrative are cleared
// at once, and any outstanding request of either stage becomes irrelevant.
func (a *Advisory[D]) Load(fetch func(ctx context.Context) (D, error)) error {
	a.mu.Lock()
	if a.scope.Err() != nil {
		a.mu.Unlock()
		return ErrClosed
	}
	a.invalidateDataLocked()
	a.data = nil
	a.dataStatus = StatusLoading
	a.dataErr = nil
	ctx, cancel := context.WithCancel(a.scope)
	a.dataCancel = cancel
	gen := a.dataGen
	a.mu.Unlock()

	a.notify()
	go a.load(ctx, cancel, fetch, gen)
	return nil
}

// Replace installs stage-one data directly. Data that differs from the current
// data (see Equal) clears the narrative.
func (a *Advisory[D]) Replace(d D) {
	a.mu.Lock()
	if a.scope.Err() != nil {
		a.mu.Unlock()
		return
	}
	same := a.data != nil && a.dataStatus == StatusReady && a.equal != nil && a.equal(*a.data, d)
	if !same {
		a.invalidateDataLocked()
	}
	a.data = &d
	a.dataStatus = StatusReady
	a.dataErr = nil
	a.mu.Unlock()

	capitan.Emit(a.scope, AdvisoryPrimaryLoaded,
		KeyName.Field("replace"),
	)
	a.notify()
}

// Reset drops stage-one data and the narrative, abandoning any outstanding
// request of either stage.
func (a *Advisory[D]) Reset() {
	a.mu.Lock()
	a.invalidateDataLocked()
	a.data = nil
	a.dataStatus = StatusIdle
	a.dataErr = nil
	a.mu.Unlock()

	a.notify()
}

// Ready reports whether stage one holds non-empty data.
func (a *Advisory[D]) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readyLocked()
}

// CanRequest reports whether Request would issue a narrative request.
func (a *Advisory[D]) CanRequest() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readyLocked() && a.textStatus != StatusLoading && a.scope.Err() == nil
}

func (a *Advisory[D]) readyLocked() bool {
	if a.data == nil || a.dataStatus != StatusReady {
		return false
	}
	return a.empty == nil || !a.empty(*a.data)
}

// Request issues a narrative request for the current data. It returns
// ErrNotReady without stage-one data and ErrBusy while a request is pending.
func (a *Advisory[D]) Request(param string) error {
	a.mu.Lock()
	if a.scope.Err() != nil {
		a.mu.Unlock()
		return ErrClosed
	}
	if !a.readyLocked() {
		a.mu.Unlock()
		return ErrNotReady
	}
	if a.textStatus == StatusLoading {
		a.mu.Unlock()
		return ErrBusy
	}
	a.text = ""
	a.textErr = nil
	a.textStatus = StatusLoading
	a.param = param
	ctx, cancel := context.WithCancel(a.scope)
	a.textCancel = cancel
	gen := a.dataGen
	data := *a.data
	a.mu.Unlock()

	a.notify()
	go a.generate(ctx, cancel, data, param, gen)
	return nil
}

// Snapshot returns an immutable copy of both stages.
func (a *Advisory[D]) Snapshot() AdvisorySnapshot[D] {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := AdvisorySnapshot[D]{
		DataStatus: a.dataStatus,
		DataErr:    a.dataErr,
		Text:       a.text,
		TextStatus: a.textStatus,
		TextErr:    a.textErr,
		Param:      a.param,
	}
	if a.data != nil {
		s.Data = *a.data
		s.HasData = true
	}
	return s
}

// invalidateDataLocked retires the current data generation along with any
// request issued under it and clears the narrative.
func (a *Advisory[D]) invalidateDataLocked() {
	a.dataGen++
	if a.dataCancel != nil {
		a.dataCancel()
		a.dataCancel = nil
	}
	if a.textCancel != nil {
		a.textCancel()
		a.textCancel = nil
	}
	a.text = ""
	a.textErr = nil
	a.textStatus = StatusIdle
	a.param = ""
}

// load runs one stage-one request.
func (a *Advisory[D]) load(ctx context.Context, cancel context.CancelFunc, fetch func(context.Context) (D, error), gen uint64) {
	defer cancel()
	start := a.clock.Now()
	d, err := fetch(ctx)
	a.metrics.OnFetch("advisory.primary", a.clock.Since(start), err)

	a.mu.Lock()
	if a.scope.Err() != nil || gen != a.dataGen {
		a.mu.Unlock()
		a.metrics.OnDiscard("advisory.primary")
		return
	}
	a.dataCancel = nil
	if err != nil {
		a.dataStatus = StatusFailed
		a.dataErr = err
	} else {
		a.data = &d
		a.dataStatus = StatusReady
	}
	a.mu.Unlock()

	if err != nil {
		capitan.Emit(ctx, AdvisoryPrimaryFailed,
			KeyGeneration.Field(int(gen)),
			KeyError.Field(err.Error()),
		)
	} else {
		capitan.Emit(ctx, AdvisoryPrimaryLoaded,
			KeyName.Field("load"),
			KeyGeneration.Field(int(gen)),
		)
	}
	a.notify()
}

// generate runs one narrative request bound to data generation gen.
func (a *Advisory[D]) generate(ctx context.Context, cancel context.CancelFunc, data D, param string, gen uint64) {
	defer cancel()
	start := a.clock.Now()
	text, err := a.narrate(ctx, data, param)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyNarrative
	}
	a.metrics.OnFetch("advisory.narrative", a.clock.Since(start), err)

	a.mu.Lock()
	if a.scope.Err() != nil || gen != a.dataGen {
		a.mu.Unlock()
		a.metrics.OnDiscard("advisory.narrative")
		capitan.Emit(context.Background(), AdvisoryNarrativeDiscarded,
			KeyParam.Field(param),
			KeyGeneration.Field(int(gen)),
		)
		return
	}
	a.textCancel = nil
	if err != nil {
		a.textStatus = StatusFailed
		a.textErr = err
	} else {
		a.text = strings.TrimSpace(text)
		a.textStatus = StatusReady
	}
	a.mu.Unlock()

	if err != nil {
		capitan.Emit(ctx, AdvisoryNarrativeFailed,
			KeyParam.Field(param),
			KeyError.Field(err.Error()),
		)
	} else {
		capitan.Emit(ctx, AdvisoryNarrativeApplied,
			KeyParam.Field(param),
			KeyGeneration.Field(int(gen)),
		)
	}
	a.notify()
}

func (a *Advisory[D]) notify() {
	if a.onChange != nil && a.scope.Err() == nil {
		a.onChange()
	}
}
