package harvest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

type place struct {
	Name  string
	State string
}

func newTestSearch(t *testing.T) (*Search[place], *gate[string, []place], *clockz.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	clock := clockz.NewFakeClock()
	lookups := &gate[string, []place]{}
	s := NewSearch(ctx, lookups.Call).Clock(clock)
	t.Cleanup(func() {
		s.Stop()
		cancel()
	})
	return s, lookups, clock
}

func advance(clock *clockz.FakeClock, d time.Duration) {
	clock.Advance(d)
	clock.BlockUntilReady()
}

func TestSearch_DebouncedSingleLookup(t *testing.T) {
	s, lookups, clock := newTestSearch(t)

	s.Type("O")
	advance(clock, 100*time.Millisecond)
	s.Type("On")
	advance(clock, 100*time.Millisecond)
	s.Type("Ong")
	advance(clock, 299*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if lookups.Count() != 0 {
		t.Fatalf("expected no lookup inside the quiet period, got %d", lookups.Count())
	}

	advance(clock, time.Millisecond)
	call := lookups.Nth(t, 0)
	if call.Key != "Ong" {
		t.Errorf("expected lookup for 'Ong', got %q", call.Key)
	}
	if !s.Searching() {
		t.Error("expected searching while lookup outstanding")
	}

	call.Resolve([]place{{Name: "Ongole", State: "Andhra Pradesh"}}, nil)
	mustWait(t, "results", func() bool { return !s.Searching() })

	if got := s.Results(); len(got) != 1 || got[0].Name != "Ongole" {
		t.Errorf("unexpected results %v", got)
	}
	time.Sleep(20 * time.Millisecond)
	if lookups.Count() != 1 {
		t.Errorf("expected exactly one lookup, got %d", lookups.Count())
	}
}

func TestSearch_SupersededResultsDiscarded(t *testing.T) {
	s, lookups, clock := newTestSearch(t)
	lookups.ignoreCancel = true

	s.Type("Ong")
	advance(clock, 300*time.Millisecond)
	first := lookups.Nth(t, 0)

	s.Type("Ongole")
	advance(clock, 300*time.Millisecond)
	second := lookups.Nth(t, 1)
	if second.Key != "Ongole" {
		t.Fatalf("expected second lookup for 'Ongole', got %q", second.Key)
	}

	second.Resolve([]place{{Name: "Ongole"}}, nil)
	mustWait(t, "current results", func() bool { return len(s.Results()) == 1 })

	first.Resolve([]place{{Name: "Ongole"}, {Name: "Ongur"}}, nil)
	time.Sleep(20 * time.Millisecond)

	if got := s.Results(); len(got) != 1 {
		t.Errorf("expected stale results to be ignored, got %v", got)
	}
}

func TestSearch_ShortQueryClearsWithoutLookup(t *testing.T) {
	s, lookups, clock := newTestSearch(t)

	s.Type("Ong")
	advance(clock, 300*time.Millisecond)
	lookups.Nth(t, 0).Resolve([]place{{Name: "Ongole"}}, nil)
	mustWait(t, "results", func() bool { return len(s.Results()) == 1 })

	s.Type("O")
	advance(clock, 300*time.Millisecond)
	mustWait(t, "cleared results", func() bool { return s.Settled() == "O" && len(s.Results()) == 0 })

	if lookups.Count() != 1 {
		t.Errorf("expected no lookup for a one-character query, got %d", lookups.Count())
	}
	if s.Searching() {
		t.Error("expected not searching")
	}
}

func TestSearch_FailureYieldsEmptyResults(t *testing.T) {
	s, lookups, clock := newTestSearch(t)

	s.Type("Ong")
	advance(clock, 300*time.Millisecond)
	lookups.Nth(t, 0).Resolve(nil, errors.New("search service unavailable"))
	mustWait(t, "lookup completion", func() bool { return !s.Searching() })

	if got := s.Results(); len(got) != 0 {
		t.Errorf("expected empty results on failure, got %v", got)
	}
}

func TestSearch_SelectClearsAndIgnoresLateResults(t *testing.T) {
	s, lookups, clock := newTestSearch(t)
	lookups.ignoreCancel = true

	s.Type("Ong")
	advance(clock, 300*time.Millisecond)
	call := lookups.Nth(t, 0)

	s.Select(place{Name: "Ongole", State: "Andhra Pradesh"})
	if s.Query() != "" {
		t.Errorf("expected query cleared, got %q", s.Query())
	}
	if s.Searching() {
		t.Error("expected searching cleared by selection")
	}
	if !call.Canceled() {
		t.Error("expected in-flight lookup abandoned")
	}

	call.Resolve([]place{{Name: "Ongole"}}, nil)
	time.Sleep(20 * time.Millisecond)

	if got := s.Results(); len(got) != 0 {
		t.Errorf("expected late response not to repopulate results, got %v", got)
	}
	sel, ok := s.Selected()
	if !ok || sel.Name != "Ongole" {
		t.Errorf("expected selection committed, got %v %v", sel, ok)
	}
}

func TestSearch_TypingAfterSelectDoesNotResurrectOldQuery(t *testing.T) {
	s, lookups, clock := newTestSearch(t)

	s.Type("Ong")
	s.Select(place{Name: "Ongole"})
	advance(clock, time.Second)
	time.Sleep(20 * time.Millisecond)

	if lookups.Count() != 0 {
		t.Errorf("expected pending keystroke dropped by selection, got %d lookups", lookups.Count())
	}
}

func TestSearch_StopPreventsLookup(t *testing.T) {
	s, lookups, clock := newTestSearch(t)

	s.Type("Ong")
	s.Stop()
	advance(clock, time.Second)
	time.Sleep(20 * time.Millisecond)

	if lookups.Count() != 0 {
		t.Errorf("expected no lookup after Stop, got %d", lookups.Count())
	}
}

func TestSearch_MinLengthCountsRunes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := clockz.NewFakeClock()
	lookups := &gate[string, []place]{}
	s := NewSearch(ctx, lookups.Call).Clock(clock).MinLength(3)
	defer s.Stop()

	s.Type("ఒం")
	advance(clock, 300*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	if lookups.Count() != 0 {
		t.Fatal("expected two runes to stay below a minimum of three")
	}

	s.Type("ఒంగో")
	advance(clock, 300*time.Millisecond)
	lookups.Nth(t, 0).Resolve(nil, nil)
}

func TestSearch_SelectDuringSettleIssuesNoLookup(t *testing.T) {
	s, lookups, clock := newTestSearch(t)
	done := make(chan struct{})
	s.input().settling = func() {
		s.Select(place{Name: "Ongole", State: "Andhra Pradesh"})
		close(done)
	}

	s.Type("Ong")
	advance(clock, 300*time.Millisecond)
	<-done
	time.Sleep(20 * time.Millisecond)

	if lookups.Count() != 0 {
		t.Errorf("expected no lookup for a query replaced by a selection, got %d", lookups.Count())
	}
	if got := s.Results(); len(got) != 0 {
		t.Errorf("expected no results, got %v", got)
	}
	if s.Searching() {
		t.Error("expected no lookup outstanding")
	}
	if s.Query() != "" {
		t.Errorf("expected query cleared, got %q", s.Query())
	}
	if sel, ok := s.Selected(); !ok || sel.Name != "Ongole" {
		t.Errorf("expected selection committed, got %v %v", sel, ok)
	}
}

func TestSearch_StaleSettleIgnored(t *testing.T) {
	s, lookups, _ := newTestSearch(t)

	s.Select(place{Name: "Ongole"})
	s.settle("Ong")
	time.Sleep(20 * time.Millisecond)

	if lookups.Count() != 0 {
		t.Errorf("expected a query that is not the settled one to be ignored, got %d lookups", lookups.Count())
	}
}
