package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/salesapi/backend/internal/domain/shared"
)

// DefaultIdempotencyKeyPrefix namespaces idempotency keys in Redis
const DefaultIdempotencyKeyPrefix = "sales:idempotency:"

// RedisIdempotencyStore implements IdempotencyStore using Redis, so that
// every API instance sees the same keys.
type RedisIdempotencyStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store over an existing Redis client
func NewRedisIdempotencyStore(client *redis.Client, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Claim stores value under key with SETNX. When the key is taken it
// returns the value stored by the first claimant.
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key, value string, ttl time.Duration) (bool, string, error) {
	redisKey := s.keyPrefix + key

	// the key can expire between SETNX and GET, hence the second attempt
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, redisKey, value, ttl).Result()
		if err != nil {
			return false, "", fmt.Errorf("failed to claim idempotency key: %w", err)
		}
		if ok {
			return true, "", nil
		}

		existing, err := s.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, "", fmt.Errorf("failed to read idempotency key: %w", err)
		}
		return false, existing, nil
	}
	return false, "", fmt.Errorf("idempotency key %q kept expiring while claimed", key)
}

// Complete overwrites an existing key with SET XX KEEPTTL
func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, value string) error {
	err := s.client.SetArgs(ctx, s.keyPrefix+key, value, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to complete idempotency key: %w", err)
	}
	return nil
}

// Release deletes the key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisIdempotencyStore) Close() error {
	return s.client.Close()
}

// Ensure RedisIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
