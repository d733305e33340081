package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/salesapi/backend/internal/interfaces/http/dto"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "sales:ratelimit"

// RateLimitConfig configures the per-client-IP limiter
type RateLimitConfig struct {
	Requests int64
	Window   time.Duration
	// Redis shares counters between instances; nil keeps them in memory
	Redis  *redis.Client
	Logger *zap.Logger
}

// NewRateLimitStore returns a Redis backed store when client is set,
// otherwise an in-process one.
func NewRateLimitStore(client *redis.Client) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          rateLimitKeyPrefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	}
	if client == nil {
		return memory.NewStoreWithOptions(opts), nil
	}
	return limiterredis.NewStoreWithOptions(client, opts)
}

// RateLimit limits each client IP to cfg.Requests per cfg.Window.
// X-RateLimit-* headers are set on every response.
func RateLimit(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store, err := NewRateLimitStore(cfg.Redis)
	if err != nil {
		return nil, err
	}

	rate := limiter.Rate{Period: cfg.Window, Limit: cfg.Requests}
	return mgin.NewMiddleware(
		limiter.New(store, rate),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Error("Rate limiter store failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeInternal,
				"An unexpected error occurred",
				GetRequestID(c),
			))
		}),
	), nil
}
