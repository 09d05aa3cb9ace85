package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// ErrThrottled is matched via errors.Is against ThrottledError values.
var ErrThrottled = errors.New("too many failed login attempts")

// ThrottledError reports a locally rejected submission and the seconds left
// before the next attempt is accepted.
type ThrottledError struct {
	RetryAfter int
}

// Error implements error.
func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed login attempts, wait %d seconds", e.RetryAfter)
}

// Is lets callers match with errors.Is(err, ErrThrottled).
func (e *ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

const (
	defaultFailureThreshold = 3
	defaultBaseCooldown     = 30 * time.Second
	defaultMaxCooldown      = 5 * time.Minute
)

// LoginGovernor throttles repeated login submissions for one client session.
// After the third consecutive failure it enters a cooldown that doubles per
// additional failure, capped at the maximum. Purely advisory: it blunts
// credential guessing and accidental retries but is not a security boundary,
// since a hostile client simply bypasses it.
//
// The governor owns no shared state beyond its own fields; the zero cost of
// a deadline comparison replaces a per-second mutation of a counter, and
// CountdownTicks exposes the one-second countdown for UI consumers.
type LoginGovernor struct {
	mu        sync.Mutex
	threshold int
	base      time.Duration
	max       time.Duration
	failures  int
	coolUntil time.Time
	now       func() time.Time
}

// GovernorOption configures a LoginGovernor.
type GovernorOption func(*LoginGovernor)

// WithGovernorClock injects a custom clock (primarily for testing).
func WithGovernorClock(now func() time.Time) GovernorOption {
	return func(g *LoginGovernor) {
		if now != nil {
			g.now = now
		}
	}
}

// WithGovernorLimits overrides the failure threshold and cooldown bounds.
func WithGovernorLimits(threshold int, base, max time.Duration) GovernorOption {
	return func(g *LoginGovernor) {
		if threshold > 0 {
			g.threshold = threshold
		}
		if base > 0 {
			g.base = base
		}
		if max > 0 {
			g.max = max
		}
	}
}

// NewLoginGovernor constructs a governor in the idle state.
func NewLoginGovernor(opts ...GovernorOption) *LoginGovernor {
	g := &LoginGovernor{
		threshold: defaultFailureThreshold,
		base:      defaultBaseCooldown,
		max:       defaultMaxCooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Allow reports whether a submission may proceed. While cooling it returns a
// ThrottledError carrying the remaining seconds; the caller must reject the
// submission before any network call.
func (g *LoginGovernor) Allow() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	remaining := g.remainingLocked()
	if remaining > 0 {
		return &ThrottledError{RetryAfter: remaining}
	}
	return nil
}

// RecordFailure registers a failed authentication attempt and returns the
// cooldown applied, zero while under the threshold.
func (g *LoginGovernor) RecordFailure() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures++
	if g.failures < g.threshold {
		return 0
	}

	cooldown := g.cooldownForLocked(g.failures)
	g.coolUntil = g.now().Add(cooldown)
	return cooldown
}

// RecordSuccess resets the consecutive failure counter and clears any
// active cooldown.
func (g *LoginGovernor) RecordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.failures = 0
	g.coolUntil = time.Time{}
}

// Failures returns the current consecutive failure count.
func (g *LoginGovernor) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// Remaining returns the whole seconds left in the active cooldown, zero when
// idle.
func (g *LoginGovernor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.remainingLocked()
}

// CountdownTicks emits the remaining cooldown seconds once per interval and
// closes when the cooldown reaches zero or ctx is cancelled. UI consumers
// drive their per-second countdown from this channel; abandoning the context
// tears the countdown down with the owning component.
func (g *LoginGovernor) CountdownTicks(ctx context.Context, interval time.Duration) <-chan int {
	if interval <= 0 {
		interval = time.Second
	}

	out := make(chan int)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			remaining := g.Remaining()
			if remaining <= 0 {
				return
			}
			select {
			case out <- remaining:
			case <-ctx.Done():
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// cooldownForLocked computes base * 2^(failures-threshold), capped at max.
func (g *LoginGovernor) cooldownForLocked(failures int) time.Duration {
	exponent := failures - g.threshold
	if exponent < 0 {
		exponent = 0
	}
	// Guard the shift; the cap is reached long before overflow matters.
	if exponent > 30 {
		return g.max
	}
	cooldown := g.base * time.Duration(1<<uint(exponent))
	if cooldown > g.max || cooldown <= 0 {
		cooldown = g.max
	}
	return cooldown
}

func (g *LoginGovernor) remainingLocked() int {
	if g.coolUntil.IsZero() {
		return 0
	}
	left := g.coolUntil.Sub(g.now())
	if left <= 0 {
		g.coolUntil = time.Time{}
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// GovernorRegistry holds one LoginGovernor per client session, mirroring the
// browser-local lifetime of the attempt state. Entries idle past the TTL are
// dropped lazily on access.
type GovernorRegistry struct {
	mu      sync.Mutex
	entries map[string]*governorEntry
	ttl     time.Duration
	opts    []GovernorOption
	now     func() time.Time
}

type governorEntry struct {
	governor *LoginGovernor
	lastSeen time.Time
}

// NewGovernorRegistry constructs a registry applying opts to every governor
// it creates.
func NewGovernorRegistry(ttl time.Duration, opts ...GovernorOption) *GovernorRegistry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &GovernorRegistry{
		entries: make(map[string]*governorEntry),
		ttl:     ttl,
		opts:    opts,
		now:     time.Now,
	}
}

// For returns the governor for the given client key, creating it on first
// use.
func (r *GovernorRegistry) For(clientKey string) *LoginGovernor {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	entry, ok := r.entries[clientKey]
	if !ok {
		entry = &governorEntry{governor: NewLoginGovernor(r.opts...)}
		r.entries[clientKey] = entry
	}
	entry.lastSeen = now
	return entry.governor
}

func (r *GovernorRegistry) sweepLocked(now time.Time) {
	for key, entry := range r.entries {
		if now.Sub(entry.lastSeen) > r.ttl {
			delete(r.entries, key)
		}
	}
}
