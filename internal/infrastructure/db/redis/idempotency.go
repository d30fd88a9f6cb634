package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// reserveTTL bounds how long a crashed create can hold a key.
	reserveTTL    = time.Minute
	pendingMarker = "pending"
)

// IdempotencyStore maps a client-supplied Idempotency-Key to the order it
// produced. Key format: idem:order:create:<key>
//
// A key moves through two values: pendingMarker while the first create runs,
// then the order id for ttl.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore wraps client. A non-positive ttl falls back to 24h.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Reserve claims key with SETNX. Only one caller wins; the others get the
// order id once it is known, or "" while the winner is still creating.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	k := idempotencyKey(key)
	ok, err := s.client.SetNX(ctx, k, pendingMarker, reserveTTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("idempotency reserve: %w", err)
	}
	if ok {
		return "", true, nil
	}

	val, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// Released or expired between the two commands.
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if val == pendingMarker {
		return "", false, nil
	}
	return val, false, nil
}

// Remember overwrites a held reservation with orderID.
func (s *IdempotencyStore) Remember(ctx context.Context, key, orderID string) (bool, error) {
	stored, err := s.client.SetXX(ctx, idempotencyKey(key), orderID, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency remember: %w", err)
	}
	return stored, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func idempotencyKey(key string) string {
	return "idem:order:create:" + key
}
