package database

import (
	"context"
	"fmt"
	"time"

	gormlogger "gorm.io/gorm/logger"

	coreport "balanceledger/internal/domain/port/core"
)

// gormLogger bridges gorm's logger interface to the core logger
type gormLogger struct {
	coreLogger    coreport.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(coreLogger coreport.Logger) gormlogger.Interface {
	return &gormLogger{
		coreLogger:    coreLogger,
		logLevel:      gormlogger.Warn,
		slowThreshold: time.Second,
	}
}

// LogMode sets the log level for the logger
func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

// Info logs info messages
func (l *gormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Info {
		l.coreLogger.Info(fmt.Sprintf(msg, data...), map[string]any{"source": "gorm"})
	}
}

// Warn logs warning messages
func (l *gormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Warn {
		l.coreLogger.Warn(fmt.Sprintf(msg, data...), map[string]any{"source": "gorm"})
	}
}

// Error logs error messages
func (l *gormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.logLevel >= gormlogger.Error {
		l.coreLogger.Error(fmt.Sprintf(msg, data...), map[string]any{"source": "gorm"})
	}
}

// Trace logs SQL statements, flagging slow queries
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := map[string]any{
		"source":     "gorm",
		"elapsed_ms": elapsed.Milliseconds(),
		"rows":       rows,
		"sql":        sql,
	}

	switch {
	case err != nil && l.logLevel >= gormlogger.Error:
		fields["error"] = err.Error()
		l.coreLogger.Error("Query failed", fields)
	case elapsed > l.slowThreshold && l.logLevel >= gormlogger.Warn:
		l.coreLogger.Warn("Slow query", fields)
	case l.logLevel >= gormlogger.Info:
		l.coreLogger.Debug("Query executed", fields)
	}
}
