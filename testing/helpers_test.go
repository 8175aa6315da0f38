package testing

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestWaitFor(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		result := WaitFor(t, 100*time.Millisecond, func() bool {
			return true
		})
		if !result {
			t.Error("expected WaitFor to return true")
		}
	})

	t.Run("condition never met", func(t *testing.T) {
		result := WaitFor(t, 50*time.Millisecond, func() bool {
			return false
		})
		if result {
			t.Error("expected WaitFor to return false on timeout")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		start := time.Now()
		var met atomic.Bool
		go func() {
			time.Sleep(30 * time.Millisecond)
			met.Store(true)
		}()
		result := WaitFor(t, 200*time.Millisecond, met.Load)
		if !result {
			t.Error("expected WaitFor to return true")
		}
		if time.Since(start) < 30*time.Millisecond {
			t.Error("condition should have taken at least 30ms")
		}
	})
}

func TestGate(t *testing.T) {
	t.Run("blocks until released", func(t *testing.T) {
		g := NewGate()
		var passed atomic.Bool
		go func() {
			_ = g.Wait(context.Background())
			passed.Store(true)
		}()

		time.Sleep(20 * time.Millisecond)
		if passed.Load() {
			t.Fatal("expected Wait to block before Release")
		}
		g.Release()
		if !WaitFor(t, 100*time.Millisecond, passed.Load) {
			t.Error("expected Wait to return after Release")
		}
	})

	t.Run("release is idempotent", func(t *testing.T) {
		g := NewGate()
		g.Release()
		g.Release()
		if err := g.Wait(context.Background()); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("context cancel unblocks", func(t *testing.T) {
		g := NewGate()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := g.Wait(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestBackend_Defaults(t *testing.T) {
	b := &Backend{}
	ctx := context.Background()

	states, _ := b.States(ctx)
	if len(states) != 2 {
		t.Errorf("expected 2 states, got %d", len(states))
	}
	districts, _ := b.Districts(ctx, "Andhra Pradesh")
	if len(districts) != 2 || districts[0] != "Prakasam" {
		t.Errorf("unexpected districts %v", districts)
	}
	places, _ := b.Search(ctx, "on")
	if len(places) != 1 || places[0].Name != "Ongole" {
		t.Errorf("unexpected search results %v", places)
	}
	f, _ := b.Weather(ctx, 0, 0)
	if len(f.Days) != 2 || f.Days[1].Weather.Description != "Slight rain" {
		t.Errorf("unexpected forecast %+v", f)
	}

	if got := b.Calls("States"); got != 1 {
		t.Errorf("expected 1 States call, got %d", got)
	}
	if got := b.Calls("Markets"); got != 0 {
		t.Errorf("expected 0 Markets calls, got %d", got)
	}
}

func TestBackend_Overrides(t *testing.T) {
	boom := errors.New("boom")
	b := &Backend{
		StatesFn: func(context.Context) ([]string, error) { return nil, boom },
	}
	if _, err := b.States(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected override error, got %v", err)
	}
	if got := b.Calls("States"); got != 1 {
		t.Errorf("expected overridden call to be counted, got %d", got)
	}
}
