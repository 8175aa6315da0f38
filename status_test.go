package harvest

import "testing"

func TestStatus_String(t *testing.T) {
	cases := map[Status]string{
		StatusIdle:    "idle",
		StatusLoading: "loading",
		StatusReady:   "ready",
		StatusFailed:  "failed",
		Status(999):   "unknown",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestStatus_Values(t *testing.T) {
	// Verify iota ordering
	if StatusIdle != 0 {
		t.Errorf("expected StatusIdle=0, got %d", StatusIdle)
	}
	if StatusFailed != 3 {
		t.Errorf("expected StatusFailed=3, got %d", StatusFailed)
	}
}
