package cache

import (
	"github.com/redis/go-redis/v9"
	"github.com/salesapi/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis-backed store when client is set and
// an in-memory store otherwise
func NewIdempotencyStore(client *redis.Client, logger *zap.Logger) shared.IdempotencyStore {
	if client != nil {
		logger.Info("using Redis idempotency store")
		return NewRedisIdempotencyStore(client, DefaultIdempotencyKeyPrefix)
	}

	logger.Warn("Redis not configured, using in-memory idempotency store; " +
		"keys are not shared between instances")
	return NewInMemoryIdempotencyStore(0)
}
