package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	identityapp "github.com/salesapi/backend/internal/application/identity"
	salesapp "github.com/salesapi/backend/internal/application/sales"
	"github.com/salesapi/backend/internal/domain/sales"
	"github.com/salesapi/backend/internal/domain/shared"
	"github.com/salesapi/backend/internal/infrastructure/auth"
	"github.com/salesapi/backend/internal/infrastructure/cache"
	"github.com/salesapi/backend/internal/infrastructure/config"
	"github.com/salesapi/backend/internal/infrastructure/event"
	"github.com/salesapi/backend/internal/infrastructure/logger"
	"github.com/salesapi/backend/internal/infrastructure/persistence"
	"github.com/salesapi/backend/internal/infrastructure/telemetry"
	"github.com/salesapi/backend/internal/interfaces/http/handler"
	"github.com/salesapi/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// the OTLP log bridge has to exist before the final logger can tee into it
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}

	log, err := logger.New(logCfg, logger.WithCore(logsProvider.ZapCore(logger.ParseLevel(cfg.Log.Level))))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting sales API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis, cache.RedisClientOptions{
			Tracing: cfg.Telemetry.Enabled,
			Metrics: cfg.Telemetry.Enabled,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr()))
	}

	idempotencyStore := cache.NewIdempotencyStore(redisClient, log)
	defer func() { _ = idempotencyStore.Close() }()

	// Repositories
	saleRepo := persistence.NewGormSaleRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Event bus
	registry := telemetry.NewPrometheusRegistry()
	saleMetrics := telemetry.NewSaleMetrics(registry)
	saleLog := event.NewSaleLogHandler(log)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(saleLog)
	eventBus.Subscribe(saleMetrics)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	operationMetrics, err := telemetry.NewOperationMetrics(meterProvider.Meter(telemetry.TracerName))
	if err != nil {
		log.Fatal("Failed to create operation metrics", zap.Error(err))
	}

	saleService := salesapp.NewSaleService(saleRepo, sales.NewEngine(), salesapp.NewSaleRequestValidator())
	saleService.SetEventPublisher(eventBus)
	saleService.SetIdempotencyStore(idempotencyStore, shared.IdempotencyConfig{
		Enabled: cfg.Idempotency.Enabled,
		TTL:     cfg.Idempotency.TTL,
	})
	saleService.SetMetrics(operationMetrics)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, log)
	if created, err := authService.EnsureBootstrapUser(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword); err != nil {
		log.Fatal("Failed to create bootstrap user", zap.Error(err))
	} else if created {
		log.Info("Bootstrap admin user ready", zap.String("email", cfg.Auth.BootstrapEmail))
	}

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	engine, err := router.NewEngine(router.Dependencies{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		HTTP:           cfg.HTTP,
		Metrics:        cfg.Metrics,
		JWTService:     jwtService,
		Redis:          redisClient,
		Registry:       registry,
		SaleHandler:    handler.NewSaleHandler(saleService),
		AuthHandler:    handler.NewAuthHandler(authService),
		HealthHandler:  handler.NewHealthHandler(telemetry.ServiceVersion, checks),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")

	// last, so the entries above still reach the collector
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		bootLog.Error("Error shutting down log provider", zap.Error(err))
	}
}

