package harvest

import (
	"context"
	"errors"
	"testing"
	"time"
)

type forecast struct {
	Commodity string
	Prices    []float64
}

func newTestAdvisory(t *testing.T) (*Advisory[forecast], *gate[string, forecast], *gate[string, string]) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	loads := &gate[string, forecast]{}
	narratives := &gate[string, string]{}
	a := NewAdvisory(ctx, func(ctx context.Context, f forecast, param string) (string, error) {
		return narratives.Call(ctx, f.Commodity+"/"+param)
	}).Empty(func(f forecast) bool { return len(f.Prices) == 0 })
	return a, loads, narratives
}

func loadForecast(t *testing.T, a *Advisory[forecast], loads *gate[string, forecast], commodity string, prices ...float64) {
	t.Helper()
	n := loads.Count()
	if err := a.Load(func(ctx context.Context) (forecast, error) { return loads.Call(ctx, commodity) }); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	loads.Nth(t, n).Resolve(forecast{Commodity: commodity, Prices: prices}, nil)
	mustWait(t, "forecast", func() bool {
		s := a.Snapshot()
		return s.DataStatus == StatusReady && s.Data.Commodity == commodity
	})
}

func TestAdvisory_RequestRequiresData(t *testing.T) {
	a, _, narratives := newTestAdvisory(t)

	if err := a.Request("Onion"); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady, got %v", err)
	}
	if a.CanRequest() {
		t.Error("expected narrative disabled without data")
	}
	if narratives.Count() != 0 {
		t.Error("expected no narrative request")
	}
}

func TestAdvisory_EmptyDataDoesNotEnable(t *testing.T) {
	a, loads, _ := newTestAdvisory(t)
	loadForecast(t, a, loads, "Onion")

	if a.Ready() {
		t.Error("expected empty forecast not ready")
	}
	if err := a.Request("Onion"); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady for empty data, got %v", err)
	}
}

func TestAdvisory_NarrativeApplied(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	loadForecast(t, a, loads, "Onion", 2100, 2150, 2200)

	if !a.CanRequest() {
		t.Fatal("expected narrative enabled")
	}
	if err := a.Request("Onion"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if a.CanRequest() {
		t.Error("expected narrative disabled while pending")
	}

	narratives.Nth(t, 0).Resolve("  Prices are rising; hold stock.  ", nil)
	mustWait(t, "narrative", func() bool { return a.Snapshot().TextStatus == StatusReady })

	s := a.Snapshot()
	if s.Text != "Prices are rising; hold stock." {
		t.Errorf("unexpected text %q", s.Text)
	}
	if s.Param != "Onion" {
		t.Errorf("expected param 'Onion', got %q", s.Param)
	}
}

func TestAdvisory_OneOutstandingRequest(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	loadForecast(t, a, loads, "Onion", 2100)

	_ = a.Request("Onion")
	if err := a.Request("Onion"); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if narratives.Count() != 1 {
		t.Errorf("expected one narrative request, got %d", narratives.Count())
	}
	narratives.Nth(t, 0).Resolve("ok", nil)
}

func TestAdvisory_LateNarrativeDiscarded(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	narratives.ignoreCancel = true
	loadForecast(t, a, loads, "Onion", 2100, 2150)

	_ = a.Request("Onion")
	onion := narratives.Nth(t, 0)

	loadForecast(t, a, loads, "Tomato", 1200, 1180)

	s := a.Snapshot()
	if s.Text != "" || s.TextStatus != StatusIdle {
		t.Errorf("expected narrative cleared by new data, got %+v", s)
	}
	if !onion.Canceled() {
		t.Error("expected superseded narrative request canceled")
	}

	onion.Resolve("Onion prices will climb.", nil)
	time.Sleep(20 * time.Millisecond)

	s = a.Snapshot()
	if s.Text != "" {
		t.Errorf("expected stale Onion narrative discarded, got %q", s.Text)
	}
	if s.Data.Commodity != "Tomato" {
		t.Errorf("expected Tomato data, got %q", s.Data.Commodity)
	}
	if !a.CanRequest() {
		t.Error("expected narrative enabled for the new data")
	}
}

func TestAdvisory_LoadClearsImmediately(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	loadForecast(t, a, loads, "Onion", 2100)
	_ = a.Request("Onion")
	narratives.Nth(t, 0).Resolve("Hold.", nil)
	mustWait(t, "narrative", func() bool { return a.Snapshot().Text == "Hold." })

	_ = a.Load(func(ctx context.Context) (forecast, error) { return loads.Call(ctx, "Tomato") })
	s := a.Snapshot()
	if s.HasData || s.Text != "" || s.DataStatus != StatusLoading {
		t.Errorf("expected both stages cleared while loading, got %+v", s)
	}
	loads.Nth(t, 1).Resolve(forecast{Commodity: "Tomato", Prices: []float64{1}}, nil)
}

func TestAdvisory_NarrativeFailureKeepsData(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	loadForecast(t, a, loads, "Onion", 2100)

	_ = a.Request("Onion")
	narratives.Nth(t, 0).Resolve("", errors.New("quota exceeded"))
	mustWait(t, "failure", func() bool { return a.Snapshot().TextStatus == StatusFailed })

	s := a.Snapshot()
	if !s.HasData || s.Data.Commodity != "Onion" || s.DataStatus != StatusReady {
		t.Errorf("expected stage-one data untouched, got %+v", s)
	}
	if s.TextErr == nil {
		t.Error("expected narrative error")
	}
	if err := a.Request("Onion"); err != nil {
		t.Errorf("expected retry allowed after failure, got %v", err)
	}
	narratives.Nth(t, 1).Resolve("ok", nil)
}

func TestAdvisory_EmptyNarrativeIsFailure(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	loadForecast(t, a, loads, "Onion", 2100)

	_ = a.Request("Onion")
	narratives.Nth(t, 0).Resolve("   ", nil)
	mustWait(t, "failure", func() bool { return a.Snapshot().TextStatus == StatusFailed })

	if !errors.Is(a.Snapshot().TextErr, ErrEmptyNarrative) {
		t.Errorf("expected ErrEmptyNarrative, got %v", a.Snapshot().TextErr)
	}
}

func TestAdvisory_LoadFailure(t *testing.T) {
	a, loads, _ := newTestAdvisory(t)

	_ = a.Load(func(ctx context.Context) (forecast, error) { return loads.Call(ctx, "Onion") })
	loads.Nth(t, 0).Resolve(forecast{}, errors.New("model not trained"))
	mustWait(t, "failure", func() bool { return a.Snapshot().DataStatus == StatusFailed })

	if a.Snapshot().DataErr == nil {
		t.Error("expected data error")
	}
	if err := a.Request("Onion"); !errors.Is(err, ErrNotReady) {
		t.Errorf("expected ErrNotReady after failed load, got %v", err)
	}
}

func TestAdvisory_ReplaceKeepsNarrativeForEqualData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	narratives := &gate[string, string]{}
	a := NewAdvisory(ctx, func(ctx context.Context, r reading, crop string) (string, error) {
		return narratives.Call(ctx, crop)
	}).Equal(func(x, y reading) bool { return x == y })

	a.Replace(reading{Moisture: 45})
	_ = a.Request("Rice")
	narratives.Nth(t, 0).Resolve("Moisture is good.", nil)
	mustWait(t, "narrative", func() bool { return a.Snapshot().TextStatus == StatusReady })

	a.Replace(reading{Moisture: 45})
	if a.Snapshot().Text != "Moisture is good." {
		t.Error("expected narrative kept for identical reading")
	}

	a.Replace(reading{Moisture: 20})
	if s := a.Snapshot(); s.Text != "" || s.TextStatus != StatusIdle {
		t.Errorf("expected narrative cleared for a changed reading, got %+v", s)
	}
}

func TestAdvisory_ReplaceDiscardsPendingNarrative(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	narratives := &gate[string, string]{ignoreCancel: true}
	a := NewAdvisory(ctx, func(ctx context.Context, r reading, crop string) (string, error) {
		return narratives.Call(ctx, crop)
	})

	a.Replace(reading{Moisture: 45})
	_ = a.Request("Rice")
	call := narratives.Nth(t, 0)
	a.Replace(reading{Moisture: 12})

	call.Resolve("Moisture is good.", nil)
	time.Sleep(20 * time.Millisecond)

	if a.Snapshot().Text != "" {
		t.Error("expected narrative for the old reading discarded")
	}
}

func TestAdvisory_ClosedScope(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loads := &gate[string, forecast]{ignoreCancel: true}
	changes := &counter{}
	a := NewAdvisory(ctx, func(context.Context, forecast, string) (string, error) { return "x", nil }).OnChange(changes.Inc)

	_ = a.Load(func(ctx context.Context) (forecast, error) { return loads.Call(ctx, "Onion") })
	call := loads.Nth(t, 0)
	before := changes.Load()
	cancel()
	call.Resolve(forecast{Commodity: "Onion", Prices: []float64{1}}, nil)
	time.Sleep(20 * time.Millisecond)

	if a.Snapshot().HasData {
		t.Error("expected late load ignored after close")
	}
	if changes.Load() != before {
		t.Error("expected no notification after close")
	}
	if err := a.Request("Onion"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestAdvisory_Reset(t *testing.T) {
	a, loads, narratives := newTestAdvisory(t)
	narratives.ignoreCancel = true
	loadForecast(t, a, loads, "Onion", 2100)
	_ = a.Request("Onion")
	call := narratives.Nth(t, 0)

	a.Reset()
	call.Resolve("late", nil)
	time.Sleep(20 * time.Millisecond)

	s := a.Snapshot()
	if s.HasData || s.Text != "" || s.DataStatus != StatusIdle {
		t.Errorf("expected both stages cleared, got %+v", s)
	}
	if a.Ready() {
		t.Error("expected not ready after Reset")
	}
}
