package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool          // include bound query variables in spans
	SlowQueryThresh time.Duration // default 200ms
	DBSystem        string        // default "postgresql"
}

// DefaultDBTracingConfig returns tracing disabled with secure defaults.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		SlowQueryThresh: 200 * time.Millisecond,
		DBSystem:        "postgresql",
	}
}

// DBTracingPlugin registers otelgorm and annotates its spans with row
// counts, table names and slow-query markers.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBTracingConfig().SlowQueryThresh
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = DefaultDBTracingConfig().DBSystem
	}
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

type queryStartKey struct{}

// RegisterOtelGorm installs otelgorm on db plus the timing callbacks.
// It does nothing when tracing is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	// registered first so the after hooks run while the otelgorm span is still open
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(name string) error
		after  func(name string) error
	}{
		{"create",
			func(n string) error { return cb.Create().Before("gorm:create").Register(n, markQueryStart) },
			func(n string) error { return cb.Create().After("gorm:create").Register(n, p.annotateSpan) }},
		{"query",
			func(n string) error { return cb.Query().Before("gorm:query").Register(n, markQueryStart) },
			func(n string) error { return cb.Query().After("gorm:query").Register(n, p.annotateSpan) }},
		{"update",
			func(n string) error { return cb.Update().Before("gorm:update").Register(n, markQueryStart) },
			func(n string) error { return cb.Update().After("gorm:update").Register(n, p.annotateSpan) }},
		{"delete",
			func(n string) error { return cb.Delete().Before("gorm:delete").Register(n, markQueryStart) },
			func(n string) error { return cb.Delete().After("gorm:delete").Register(n, p.annotateSpan) }},
		{"row",
			func(n string) error { return cb.Row().Before("gorm:row").Register(n, markQueryStart) },
			func(n string) error { return cb.Row().After("gorm:row").Register(n, p.annotateSpan) }},
		{"raw",
			func(n string) error { return cb.Raw().Before("gorm:raw").Register(n, markQueryStart) },
			func(n string) error { return cb.Raw().After("gorm:raw").Register(n, p.annotateSpan) }},
	}

	for _, h := range hooks {
		if err := h.before("otel_timing:before_" + h.op); err != nil {
			return err
		}
		if err := h.after("otel_timing:after_" + h.op); err != nil {
			return err
		}
	}
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) annotateSpan(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// a missing row is an expected outcome for lookups
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	startTime, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(startTime); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
