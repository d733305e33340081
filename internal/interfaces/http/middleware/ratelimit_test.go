package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/salesapi/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitedRouter(t *testing.T, cfg RateLimitConfig) *gin.Engine {
	t.Helper()
	limit, err := RateLimit(cfg)
	require.NoError(t, err)

	router := gin.New()
	router.Use(limit)
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func doFrom(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit_Memory(t *testing.T) {
	router := newRateLimitedRouter(t, RateLimitConfig{Requests: 2, Window: time.Minute})

	first := doFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, doFrom(router, "10.0.0.1").Code)

	blocked := doFrom(router, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, blocked).Code)

	// other clients have their own budget
	assert.Equal(t, http.StatusOK, doFrom(router, "10.0.0.2").Code)
}

func TestRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	router := newRateLimitedRouter(t, RateLimitConfig{Requests: 1, Window: time.Minute, Redis: client})

	assert.Equal(t, http.StatusOK, doFrom(router, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(router, "10.0.0.1").Code)
}
