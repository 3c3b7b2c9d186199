package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLogLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLogLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel("unknown"))
	assert.Equal(t, zapcore.InfoLevel, parseLogLevel(""))
}

func TestNewWithConfig_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := NewWithConfig(Config{
		Level:          "info",
		Format:         "json",
		OutputPath:     path,
		ServiceName:    "user-rest-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
	})
	require.NoError(t, err)

	l.Info("hello", zap.Int64("id", 1))
	l.Debug("filtered out")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"service":"user-rest-service"`)
	assert.NotContains(t, string(data), "filtered out")
}

func TestRotation_WithDefaults(t *testing.T) {
	assert.Equal(t, defaultRotation, Rotation{}.withDefaults())
	assert.Equal(t, Rotation{MaxSizeMB: 100, MaxBackups: 7, MaxAgeDays: 28}, Rotation{MaxBackups: 7}.withDefaults())
}

func TestWithContext_RequestID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	WithContext(ctx, base).Info("with id")
	WithContext(context.Background(), base).Info("without id")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "req-123", entries[0].ContextMap()["request_id"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	gl := NewGormLogger(zap.New(core), 100*time.Millisecond)
	require.Equal(t, gormlogger.Warn, gl.Level())

	sql := func() (string, int64) { return "SELECT * FROM users", 1 }

	// fast query below threshold at warn level is not logged
	gl.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 0, logs.Len())

	// a lookup miss is not an error
	gl.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	gl.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "slow query", logs.All()[0].Message)
	assert.Equal(t, "gorm", logs.All()[0].LoggerName)

	ctx := ContextWithRequestID(context.Background(), "req-9")
	gl.Trace(ctx, time.Now(), sql, errors.New("syntax error"))
	require.Equal(t, 2, logs.Len())
	failed := logs.All()[1]
	assert.Equal(t, "query failed", failed.Message)
	assert.Equal(t, "req-9", failed.ContextMap()["request_id"])
	assert.Equal(t, "SELECT * FROM users", failed.ContextMap()["sql"])
}

func TestGormLogger_DebugQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), 0)
	require.Equal(t, gormlogger.Info, gl.Level())

	gl.Trace(context.Background(), time.Now(), func() (string, int64) { return "PRAGMA foreign_keys", -1 }, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.DebugLevel, entry.Level)
	assert.NotContains(t, entry.ContextMap(), "rows")
}

func TestGormLogger_LogMode(t *testing.T) {
	core, _ := observer.New(zapcore.ErrorLevel)
	gl := NewGormLogger(zap.New(core), 0)
	assert.Equal(t, gormlogger.Error, gl.Level())

	silent := gl.LogMode(gormlogger.Silent).(*GormLogger)
	assert.Equal(t, gormlogger.Silent, silent.Level())
	assert.Equal(t, gormlogger.Error, gl.Level())
}
