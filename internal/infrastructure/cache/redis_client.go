package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/salesapi/backend/internal/infrastructure/config"
)

// RedisClientOptions controls Redis client instrumentation
type RedisClientOptions struct {
	Tracing bool
	Metrics bool
}

// NewRedisClient connects to Redis, optionally instruments the client with
// OpenTelemetry, and verifies the connection with a PING.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, opts RedisClientOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if opts.Tracing {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to instrument redis tracing: %w", err)
		}
	}
	if opts.Metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to instrument redis metrics: %w", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
