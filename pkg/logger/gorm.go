package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const maxLoggedSQL = 1000

// GormLogger routes GORM's logging through zap. Queries are emitted at debug,
// slow queries at warn and failed queries at error.
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

var _ gormlogger.Interface = (*GormLogger)(nil)

// NewGormLogger derives the GORM log level from what l has enabled.
func NewGormLogger(l *zap.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		log:           l.Named("gorm"),
		level:         gormLevel(l.Core()),
		slowThreshold: slowThreshold,
	}
}

func gormLevel(core zapcore.Core) gormlogger.LogLevel {
	switch {
	case core.Enabled(zapcore.DebugLevel):
		return gormlogger.Info
	case core.Enabled(zapcore.WarnLevel):
		return gormlogger.Warn
	case core.Enabled(zapcore.ErrorLevel):
		return gormlogger.Error
	default:
		return gormlogger.Silent
	}
}

// Level reports the GORM level in effect.
func (g *GormLogger) Level() gormlogger.LogLevel {
	return g.level
}

// LogMode returns a copy at the given level.
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

func (g *GormLogger) Info(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Info {
		WithContext(ctx, g.log).Info(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Warn(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Warn {
		WithContext(ctx, g.log).Warn(fmt.Sprintf(msg, args...))
	}
}

func (g *GormLogger) Error(ctx context.Context, msg string, args ...any) {
	if g.level >= gormlogger.Error {
		WithContext(ctx, g.log).Error(fmt.Sprintf(msg, args...))
	}
}

// Trace logs one executed statement. A missing record is a normal lookup miss
// for the user store and is never reported as an error.
func (g *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slowThreshold > 0 && elapsed > g.slowThreshold

	switch {
	case failed && g.level >= gormlogger.Error:
		WithContext(ctx, g.log).Error("query failed", append(g.queryFields(fc, elapsed), zap.Error(err))...)
	case slow && g.level >= gormlogger.Warn:
		WithContext(ctx, g.log).Warn("slow query",
			append(g.queryFields(fc, elapsed), zap.Duration("threshold", g.slowThreshold))...)
	case g.level >= gormlogger.Info:
		WithContext(ctx, g.log).Debug("query", g.queryFields(fc, elapsed)...)
	}
}

func (g *GormLogger) queryFields(fc func() (string, int64), elapsed time.Duration) []zap.Field {
	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}
	fields := []zap.Field{zap.String("sql", sql), zap.Duration("elapsed", elapsed)}
	// gorm reports -1 when the statement has no row count
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	return fields
}
