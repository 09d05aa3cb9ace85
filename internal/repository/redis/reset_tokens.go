package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Rethick-Jeganathan/Procura/internal/core/port"
)

// ResetTokenStore records consumed recovery tokens in Redis. Only the token
// hash is stored; the marker outlives the token's validity window so a
// replayed token keeps failing until it has expired anyway.
type ResetTokenStore struct {
	client *redis.Client
	prefix string
}

// NewResetTokenStore constructs a Redis-backed consumption tracker.
func NewResetTokenStore(client *redis.Client, keyPrefix string) *ResetTokenStore {
	if keyPrefix == "" {
		keyPrefix = "reset-token"
	}
	return &ResetTokenStore{client: client, prefix: keyPrefix}
}

// Consume marks the token hash as used. SET NX makes the first caller the
// winner; everyone else sees false.
func (s *ResetTokenStore) Consume(ctx context.Context, tokenHash string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}

	key := fmt.Sprintf("%s:%s", s.prefix, tokenHash)
	first, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis consume reset token: %w", err)
	}

	return first, nil
}

// Release drops the consumption marker. The token becomes redeemable again,
// so callers only release when the provider never saw the redemption.
func (s *ResetTokenStore) Release(ctx context.Context, tokenHash string) error {
	key := fmt.Sprintf("%s:%s", s.prefix, tokenHash)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis release reset token: %w", err)
	}
	return nil
}

var _ port.ResetTokenStore = (*ResetTokenStore)(nil)
