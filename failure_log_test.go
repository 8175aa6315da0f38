package harvest

import (
	"errors"
	"testing"
)

func TestFailureLog_Disabled(t *testing.T) {
	for _, limit := range []int{0, -1} {
		if l := newFailureLog(limit); l != nil {
			t.Errorf("expected nil log for limit %d", limit)
		}
	}

	var l *failureLog
	l.record(1, errors.New("offline"))
	l.reset()
	if l.errors() != nil {
		t.Error("expected nil errors from nil log")
	}
}

func TestFailureLog_KeepsNewest(t *testing.T) {
	l := newFailureLog(2)
	offline := errors.New("offline")
	l.record(1, offline)
	l.record(2, errors.New("timeout"))
	l.record(3, errors.New("bad gateway"))

	errs := l.errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if errs[0].Error() != "tick 2: timeout" {
		t.Errorf("expected oldest kept to be tick 2, got %q", errs[0])
	}
	if errs[1].Error() != "tick 3: bad gateway" {
		t.Errorf("expected newest to be tick 3, got %q", errs[1])
	}
	if errors.Is(errs[0], offline) {
		t.Error("tick 1 should have been dropped")
	}
}

func TestFailureLog_Unwraps(t *testing.T) {
	l := newFailureLog(3)
	l.record(7, ErrEmptyNarrative)

	errs := l.errors()
	if !errors.Is(errs[0], ErrEmptyNarrative) {
		t.Errorf("expected history entry to wrap the tick error, got %v", errs[0])
	}
}

func TestFailureLog_ResetEndsStreak(t *testing.T) {
	l := newFailureLog(3)
	l.record(1, errors.New("offline"))
	l.record(2, errors.New("offline"))
	l.reset()

	if errs := l.errors(); errs != nil {
		t.Errorf("expected no errors after reset, got %v", errs)
	}

	l.record(4, errors.New("offline"))
	if n := len(l.errors()); n != 1 {
		t.Errorf("expected 1 error after new failure, got %d", n)
	}
}

func TestFailureLog_ReturnsCopy(t *testing.T) {
	l := newFailureLog(2)
	l.record(1, errors.New("offline"))

	errs := l.errors()
	errs[0] = nil
	if l.errors()[0] == nil {
		t.Error("mutating the returned slice changed the log")
	}
}
