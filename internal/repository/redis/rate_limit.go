package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
)

// RateLimitStore enforces a sliding-window limit over Redis sorted sets. Each
// allowed attempt is recorded as a member scored by its nanosecond timestamp;
// the window is trimmed on every check.
type RateLimitStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRateLimitStore constructs a Redis-backed sliding-window limiter.
func NewRateLimitStore(client *redis.Client, keyPrefix string) *RateLimitStore {
	if keyPrefix == "" {
		keyPrefix = "ratelimit"
	}
	return &RateLimitStore{
		client: client,
		prefix: keyPrefix,
		now:    time.Now,
	}
}

// WithClock overrides the store clock for deterministic testing.
func (s *RateLimitStore) WithClock(now func() time.Time) *RateLimitStore {
	if now != nil {
		s.now = now
	}
	return s
}

// Allow checks the key against the limit and records the attempt when it is
// admitted. Trim, count, and the conditional add run in one round trip.
func (s *RateLimitStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (port.RateLimitDecision, error) {
	if limit <= 0 || window <= 0 {
		return port.RateLimitDecision{Allowed: true, Remaining: limit}, nil
	}

	now := s.now()
	redisKey := fmt.Sprintf("%s:%s", s.prefix, key)
	cutoff := fmt.Sprintf("%d", now.Add(-window).UnixNano())

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", cutoff)
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit check: %w", err)
	}

	count := int(countCmd.Val())
	if count >= limit {
		oldest, err := s.oldestAttempt(ctx, redisKey)
		if err != nil {
			return port.RateLimitDecision{}, err
		}
		reset := oldest.Add(window)
		retry := reset.Sub(now)
		if retry < 0 {
			retry = 0
		}
		return port.RateLimitDecision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: retry,
			Reset:      reset,
		}, nil
	}

	record := s.client.TxPipeline()
	record.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	record.Expire(ctx, redisKey, window)
	if _, err := record.Exec(ctx); err != nil {
		return port.RateLimitDecision{}, fmt.Errorf("redis rate limit record: %w", err)
	}

	return port.RateLimitDecision{
		Allowed:   true,
		Remaining: limit - count - 1,
		Reset:     now.Add(window),
	}, nil
}

func (s *RateLimitStore) oldestAttempt(ctx context.Context, redisKey string) (time.Time, error) {
	values, err := s.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("redis oldest attempt: %w", err)
	}
	if len(values) == 0 {
		return s.now(), nil
	}
	return time.Unix(0, int64(values[0].Score)), nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
