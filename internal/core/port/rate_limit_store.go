package port

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of a sliding-window check.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Time
}

// RateLimitStore enforces a sliding-window limit over a shared backend. The
// attempt is recorded only when it is allowed.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// ResetTokenStore tracks consumption of single-use password-reset tokens.
type ResetTokenStore interface {
	// Consume marks the token hash as used and reports whether this call was
	// the first consumer.
	Consume(ctx context.Context, tokenHash string, ttl time.Duration) (bool, error)
	// Release removes the consumption marker so the token can be redeemed
	// again. Used when the redemption itself failed transiently.
	Release(ctx context.Context, tokenHash string) error
}
