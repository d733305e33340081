package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/salesapi/backend/internal/infrastructure/auth"
	"github.com/salesapi/backend/internal/infrastructure/config"
	"github.com/salesapi/backend/internal/infrastructure/logger"
	"github.com/salesapi/backend/internal/infrastructure/telemetry"
	"github.com/salesapi/backend/internal/interfaces/http/handler"
	"github.com/salesapi/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Dependencies is everything the HTTP layer needs from the composition root
type Dependencies struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	HTTP           config.HTTPConfig
	Metrics        config.MetricsConfig
	JWTService     *auth.JWTService
	// Redis backs the rate limiter when set
	Redis *redis.Client
	// Registry is scraped on Metrics.Path when metrics are enabled
	Registry *prometheus.Registry

	SaleHandler   *handler.SaleHandler
	AuthHandler   *handler.AuthHandler
	HealthHandler *handler.HealthHandler
}

// NewEngine builds the gin engine with the global middleware chain and
// every route of the API.
func NewEngine(deps Dependencies) (*gin.Engine, error) {
	engine := gin.New()
	if len(deps.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(deps.HTTP.TrustedProxies); err != nil {
			return nil, err
		}
	}

	engine.Use(
		logger.Recovery(deps.Logger),
		middleware.Tracing(middleware.TracingConfig{ServiceName: deps.ServiceName, Enabled: deps.TracingEnabled}),
		middleware.RequestID(),
		middleware.SpanAttributes(),
		logger.GinMiddleware(deps.Logger),
		middleware.Secure(),
	)
	if deps.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(deps.HTTP.MaxBodySize))
	}

	if deps.Metrics.Enabled && deps.Registry != nil {
		engine.Use(telemetry.NewHTTPMetrics(deps.Registry).Middleware())
		engine.GET(deps.Metrics.Path, gin.WrapH(telemetry.PrometheusHandler(deps.Registry)))
	}

	engine.GET("/health", deps.HealthHandler.Health)

	var opts []RouterOption
	if deps.HTTP.RateLimitEnabled {
		limit, err := middleware.RateLimit(middleware.RateLimitConfig{
			Requests: deps.HTTP.RateLimitRequests,
			Window:   deps.HTTP.RateLimitWindow,
			Redis:    deps.Redis,
			Logger:   deps.Logger,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithGroupMiddleware(limit))
	}

	r := NewRouter(engine, opts...)
	r.Register(authRoutes(deps.AuthHandler))
	r.Register(saleRoutes(deps.SaleHandler, middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
		JWTService: deps.JWTService,
		Logger:     deps.Logger,
	})))
	r.Setup()

	return engine, nil
}

func authRoutes(h *handler.AuthHandler) *DomainGroup {
	return NewDomainGroup("auth", "/auth").
		POST("/login", h.Login)
}

func saleRoutes(h *handler.SaleHandler, authn gin.HandlerFunc) *DomainGroup {
	return NewDomainGroup("sales", "/sales").
		Use(authn).
		POST("", h.Create).
		GET("", h.List).
		GET("/:id", h.GetByID).
		PUT("/:id", h.Update).
		POST("/:id/cancel", h.Cancel).
		DELETE("/:id", h.Delete)
}
