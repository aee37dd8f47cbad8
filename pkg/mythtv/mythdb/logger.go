package mythdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	// slowQuery is the elapsed time past which a statement is logged at warn.
	slowQuery = 500 * time.Millisecond

	// sqlLogLimit caps the statement text written to the log.
	sqlLogLimit = 200
)

// queryLogger routes gorm's logging through the mythdb slog logger.
// Missing rows are an expected outcome of settings and record lookups and
// are never reported as errors.
type queryLogger struct {
	log   *slog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func newQueryLogger(level string, log *slog.Logger) *queryLogger {
	lvl := gormlogger.Warn
	switch level {
	case "silent":
		lvl = gormlogger.Silent
	case "error":
		lvl = gormlogger.Error
	case "info", "debug":
		lvl = gormlogger.Info
	}
	return &queryLogger{log: log, level: lvl, slow: slowQuery}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	q.printf(ctx, gormlogger.Info, slog.LevelInfo, msg, args)
}

func (q *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	q.printf(ctx, gormlogger.Warn, slog.LevelWarn, msg, args)
}

func (q *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	q.printf(ctx, gormlogger.Error, slog.LevelError, msg, args)
}

func (q *queryLogger) printf(ctx context.Context, min gormlogger.LogLevel, lvl slog.Level, msg string, args []any) {
	if q.level < min {
		return
	}
	q.log.Log(ctx, lvl, fmt.Sprintf(msg, args...))
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	var (
		lvl   slog.Level
		msg   string
		extra []slog.Attr
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && q.level >= gormlogger.Error:
		lvl, msg = slog.LevelError, "query failed"
		extra = append(extra, slog.String("error", err.Error()))
	case elapsed > q.slow && q.level >= gormlogger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
		extra = append(extra, slog.Duration("threshold", q.slow))
	case q.level >= gormlogger.Info && q.log.Enabled(ctx, slog.LevelDebug):
		lvl, msg = slog.LevelDebug, "query"
	default:
		return
	}

	sql, rows := fc()
	if len(sql) > sqlLogLimit {
		sql = sql[:sqlLogLimit] + "..."
	}
	attrs := append([]slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}, extra...)
	q.log.LogAttrs(ctx, lvl, msg, attrs...)
}
