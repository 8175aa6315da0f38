package harvest

import (
	"context"
	"sync"
	"testing"
	"time"
)

// waitFor polls a condition until it returns true or the timeout elapses.
func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

// mustWait fails the test if the condition is not met within a second.
func mustWait(t *testing.T, what string, condition func() bool) {
	t.Helper()
	if !waitFor(t, time.Second, condition) {
		t.Fatalf("timed out waiting for %s", what)
	}
}

type reply[V any] struct {
	v   V
	err error
}

// pendingCall is one blocked collaborator invocation.
type pendingCall[K, V any] struct {
	Key   K
	ctx   context.Context
	reply chan reply[V]
}

// Resolve completes the call.
func (p *pendingCall[K, V]) Resolve(v V, err error) {
	p.reply <- reply[V]{v: v, err: err}
}

// Canceled reports whether the caller abandoned the call.
func (p *pendingCall[K, V]) Canceled() bool {
	return p.ctx.Err() != nil
}

// gate is a fake collaborator whose calls block until the test resolves them.
// With ignoreCancel set, calls keep waiting for Resolve even after their
// context is canceled, simulating a network layer that cannot abort.
type gate[K, V any] struct {
	ignoreCancel bool

	mu    sync.Mutex
	calls []*pendingCall[K, V]
}

func (g *gate[K, V]) Call(ctx context.Context, key K) (V, error) {
	p := &pendingCall[K, V]{Key: key, ctx: ctx, reply: make(chan reply[V], 1)}
	g.mu.Lock()
	g.calls = append(g.calls, p)
	g.mu.Unlock()

	if g.ignoreCancel {
		r := <-p.reply
		return r.v, r.err
	}
	select {
	case r := <-p.reply:
		return r.v, r.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Count returns the number of calls issued so far.
func (g *gate[K, V]) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// Nth waits for the n-th call (zero based) and returns it.
func (g *gate[K, V]) Nth(t *testing.T, n int) *pendingCall[K, V] {
	t.Helper()
	mustWait(t, "collaborator call", func() bool { return g.Count() > n })
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[n]
}

// fakeLocations is a CascadeSource backed by one gate per rank.
type fakeLocations struct {
	states    gate[string, []string]
	districts gate[string, []string]
	markets   gate[string, []string]
}

func (f *fakeLocations) States(ctx context.Context) ([]string, error) {
	return f.states.Call(ctx, "")
}

func (f *fakeLocations) Districts(ctx context.Context, state string) ([]string, error) {
	return f.districts.Call(ctx, state)
}

func (f *fakeLocations) Markets(ctx context.Context, district string) ([]string, error) {
	return f.markets.Call(ctx, district)
}

// counter counts change notifications.
type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) Inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) Load() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}
