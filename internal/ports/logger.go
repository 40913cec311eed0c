// Package ports declares the interfaces the slicing core needs from its surroundings.
package ports

import (
	"context"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug is for per-step tracing.
	LevelDebug Level = iota
	// LevelInfo is for pipeline progress.
	LevelInfo
	// LevelWarn is for print warnings and recoverable problems.
	LevelWarn
	// LevelError is for failed runs.
	LevelError
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug
	case "warn", "WARN", "warning":
		return LevelWarn
	case "error", "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err creates an "error" field.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Elapsed creates a "duration" field measured from start.
func Elapsed(start time.Time) Field {
	return Field{Key: "duration", Value: time.Since(start).Round(time.Microsecond)}
}

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// With returns a Logger that adds fields to every entry.
	With(fields ...Field) Logger

	Level() Level
	SetLevel(level Level)
}

type loggerKey struct{}

// LoggerFromContext retrieves a Logger from the context, or nil.
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return logger
	}
	return nil
}

// ContextWithLogger returns a new context with the logger attached.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}
