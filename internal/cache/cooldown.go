package cache

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"discogsography/internal/apperr"
)

const cooldownKeyFormat = "sync:cooldown:%s"

// Store wraps the Valkey client with the two operations the sync trigger
// and cache-invalidation webhook need.
type Store struct {
	client valkey.Client
}

func NewStore(client valkey.Client) *Store {
	return &Store{client: client}
}

// HasCooldown reports whether userID currently has an active sync cooldown.
func (s *Store) HasCooldown(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf(cooldownKeyFormat, userID)
	n, err := s.client.Do(ctx, s.client.B().Exists().Key(key).Build()).AsInt64()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetCooldown sets the per-user cooldown key with the given TTL.
func (s *Store) SetCooldown(ctx context.Context, userID string, ttl time.Duration) error {
	key := fmt.Sprintf(cooldownKeyFormat, userID)
	return s.client.Do(ctx, s.client.B().Setex().Key(key).Seconds(int64(ttl.Seconds())).Value("1").Build()).Error()
}

// InvalidatePattern deletes every key matching pattern (wildcards allowed
// per Redis KEYS/SCAN semantics) and returns the number deleted.
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	keys, err := s.client.Do(ctx, s.client.B().Keys().Pattern(pattern).Build()).AsStrSlice()
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := s.client.Do(ctx, s.client.B().Del().Key(keys...).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// VerifyWebhookSecret constant-time-compares candidate against configured,
// per spec.md §4.E's cache invalidation webhook contract. An empty
// configured secret means the webhook is disabled.
func VerifyWebhookSecret(configured, candidate string) error {
	if configured == "" {
		return apperr.ServiceUnavailable("cache invalidation webhook is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) != 1 {
		return apperr.Unauthorized("invalid webhook secret")
	}
	return nil
}
