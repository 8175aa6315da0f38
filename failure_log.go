package harvest

import (
	"fmt"
	"sync"
)

// tickFailure is one failed poll tick.
type tickFailure struct {
	tick int
	err  error
}

func (f tickFailure) Error() string { return fmt.Sprintf("tick %d: %v", f.tick, f.err) }

func (f tickFailure) Unwrap() error { return f.err }

// failureLog keeps the most recent consecutive tick failures of a poller.
// A nil log records nothing.
type failureLog struct {
	mu    sync.Mutex
	limit int
	recs  []tickFailure
}

func newFailureLog(limit int) *failureLog {
	if limit <= 0 {
		return nil
	}
	return &failureLog{limit: limit, recs: make([]tickFailure, 0, limit)}
}

// record appends a failure, dropping the oldest once the limit is reached.
func (l *failureLog) record(tick int, err error) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) == l.limit {
		copy(l.recs, l.recs[1:])
		l.recs = l.recs[:l.limit-1]
	}
	l.recs = append(l.recs, tickFailure{tick: tick, err: err})
}

// reset forgets every failure; a successful tick ends the streak.
func (l *failureLog) reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.recs = l.recs[:0]
	l.mu.Unlock()
}

// errors returns the failures oldest first, each wrapping the tick's error.
func (l *failureLog) errors() []error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.recs) == 0 {
		return nil
	}
	out := make([]error, len(l.recs))
	for i, f := range l.recs {
		out[i] = f
	}
	return out
}
