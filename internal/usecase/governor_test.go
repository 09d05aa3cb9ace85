package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestLoginGovernor_BackoffSchedule(t *testing.T) {
	clock := newFakeClock()
	governor := NewLoginGovernor(WithGovernorClock(clock.Now))

	// First two failures keep the governor idle.
	for i := 0; i < 2; i++ {
		if cooldown := governor.RecordFailure(); cooldown != 0 {
			t.Fatalf("failure %d should not cool down, got %v", i+1, cooldown)
		}
		if err := governor.Allow(); err != nil {
			t.Fatalf("failure %d should leave submissions allowed: %v", i+1, err)
		}
	}

	expected := []time.Duration{
		30 * time.Second,  // 3rd failure
		60 * time.Second,  // 4th
		120 * time.Second, // 5th
		240 * time.Second, // 6th
		300 * time.Second, // 7th, capped
		300 * time.Second, // 8th, still capped
	}

	for i, want := range expected {
		got := governor.RecordFailure()
		if got != want {
			t.Fatalf("failure %d: expected cooldown %v, got %v", i+3, want, got)
		}
		// Let each cooldown lapse so the next failure is "consecutive"
		// rather than a rejected submission.
		clock.Advance(want)
	}
}

func TestLoginGovernor_RejectsWhileCooling(t *testing.T) {
	clock := newFakeClock()
	governor := NewLoginGovernor(WithGovernorClock(clock.Now))

	for i := 0; i < 3; i++ {
		governor.RecordFailure()
	}

	err := governor.Allow()
	if err == nil {
		t.Fatal("expected throttled error after third failure")
	}
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled match, got %v", err)
	}

	var throttled *ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected ThrottledError, got %T", err)
	}
	if throttled.RetryAfter != 30 {
		t.Fatalf("expected 30 seconds remaining, got %d", throttled.RetryAfter)
	}
	if !strings.Contains(err.Error(), "30 seconds") {
		t.Fatalf("message should carry remaining seconds, got %q", err.Error())
	}

	clock.Advance(12 * time.Second)
	if remaining := governor.Remaining(); remaining != 18 {
		t.Fatalf("expected 18 seconds remaining, got %d", remaining)
	}

	clock.Advance(18 * time.Second)
	if err := governor.Allow(); err != nil {
		t.Fatalf("cooldown elapsed, expected idle: %v", err)
	}
}

func TestLoginGovernor_SuccessResets(t *testing.T) {
	clock := newFakeClock()
	governor := NewLoginGovernor(WithGovernorClock(clock.Now))

	for i := 0; i < 5; i++ {
		governor.RecordFailure()
	}
	if governor.Failures() != 5 {
		t.Fatalf("expected 5 failures, got %d", governor.Failures())
	}

	governor.RecordSuccess()

	if governor.Failures() != 0 {
		t.Fatalf("expected counter reset, got %d", governor.Failures())
	}
	if err := governor.Allow(); err != nil {
		t.Fatalf("success must clear cooldown: %v", err)
	}

	// Backoff restarts from scratch after a success.
	governor.RecordFailure()
	governor.RecordFailure()
	if cooldown := governor.RecordFailure(); cooldown != 30*time.Second {
		t.Fatalf("expected fresh 30s cooldown, got %v", cooldown)
	}
}

func TestLoginGovernor_CountdownTicks(t *testing.T) {
	clock := newFakeClock()
	governor := NewLoginGovernor(WithGovernorClock(clock.Now))

	for i := 0; i < 3; i++ {
		governor.RecordFailure()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ticks := governor.CountdownTicks(ctx, time.Millisecond)

	last := 31
	count := 0
	for remaining := range ticks {
		if remaining > last {
			t.Fatalf("countdown must not increase: %d after %d", remaining, last)
		}
		last = remaining
		count++
		// Simulate one second of wall time per observed tick.
		clock.Advance(time.Second)
		if count > 40 {
			t.Fatal("countdown failed to terminate")
		}
	}

	if governor.Remaining() != 0 {
		t.Fatalf("expected countdown to end idle, got %d remaining", governor.Remaining())
	}
	if err := governor.Allow(); err != nil {
		t.Fatalf("expected submissions re-enabled: %v", err)
	}
}

func TestGovernorRegistry_PerClientIsolation(t *testing.T) {
	registry := NewGovernorRegistry(time.Minute)

	a := registry.For("client-a")
	b := registry.For("client-b")

	if a == b {
		t.Fatal("distinct clients must get distinct governors")
	}

	a.RecordFailure()
	a.RecordFailure()
	a.RecordFailure()

	if err := a.Allow(); err == nil {
		t.Fatal("client-a should be cooling")
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("client-b must be unaffected: %v", err)
	}
	if registry.For("client-a") != a {
		t.Fatal("registry must return the same governor for a key")
	}
}
