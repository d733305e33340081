package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormLogger_Trace(t *testing.T) {
	sql := func() (string, int64) { return "SELECT * FROM sales", 3 }

	t.Run("logs errors", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(context.Background(), time.Now(), sql, errors.New("connection reset"))

		assert.Equal(t, 1, logs.FilterMessage("SQL Error").Len())
	})

	t.Run("ignores record not found", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn)

		l.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("warns on slow queries", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn, WithSlowThreshold(time.Millisecond))

		l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)

		assert.Equal(t, 1, logs.FilterMessage("Slow SQL").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Warn).LogMode(gormlogger.Silent)

		l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))

		assert.Equal(t, 0, logs.Len())
	})

	t.Run("info level records every query", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		l := NewGormLogger(zap.New(core), gormlogger.Info)

		l.Trace(context.Background(), time.Now(), sql, nil)

		entries := logs.FilterMessage("SQL Query").All()
		if assert.Len(t, entries, 1) {
			assert.Equal(t, "SELECT * FROM sales", entries[0].ContextMap()["sql"])
		}
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}
