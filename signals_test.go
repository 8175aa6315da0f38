package harvest

import (
	"strings"
	"testing"
)

func TestSignals_Names(t *testing.T) {
	cases := []struct {
		name string
		got  string
	}{
		{"harvest.view.opened", ViewOpened.Name()},
		{"harvest.view.closed", ViewClosed.Name()},
		{"harvest.debounce.settled", DebounceSettled.Name()},
		{"harvest.cascade.fetch.discarded", CascadeFetchDiscarded.Name()},
		{"harvest.search.lookup.discarded", SearchLookupDiscarded.Name()},
		{"harvest.poller.tick.applied", PollerTickApplied.Name()},
		{"harvest.advisory.narrative.discarded", AdvisoryNarrativeDiscarded.Name()},
	}
	for _, tc := range cases {
		if tc.got != tc.name {
			t.Errorf("expected name %q, got %q", tc.name, tc.got)
		}
	}
}

func TestSignals_AllNamespaced(t *testing.T) {
	seen := make(map[string]bool)
	for _, sig := range Signals {
		if !strings.HasPrefix(sig.Name(), "harvest.") {
			t.Errorf("signal %q is not namespaced", sig.Name())
		}
		if seen[sig.Name()] {
			t.Errorf("signal %q listed twice", sig.Name())
		}
		seen[sig.Name()] = true
	}
	if len(Signals) != 20 {
		t.Errorf("expected 20 signals, got %d", len(Signals))
	}
}
