// Package logging implements ports.Logger for the console and for tests.
package logging

import (
	"context"
	"sync/atomic"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// NopLogger discards all messages. It is the default when no logger is configured.
type NopLogger struct {
	level atomic.Int32
}

// NewNopLogger creates a new no-op logger.
func NewNopLogger() *NopLogger {
	l := &NopLogger{}
	l.level.Store(int32(ports.LevelInfo))
	return l
}

// Debug does nothing.
func (l *NopLogger) Debug(context.Context, string, ...ports.Field) {}

// Info does nothing.
func (l *NopLogger) Info(context.Context, string, ...ports.Field) {}

// Warn does nothing.
func (l *NopLogger) Warn(context.Context, string, ...ports.Field) {}

// Error does nothing.
func (l *NopLogger) Error(context.Context, string, ...ports.Field) {}

// With returns the same logger.
func (l *NopLogger) With(...ports.Field) ports.Logger { return l }

// Level returns the configured level.
func (l *NopLogger) Level() ports.Level { return ports.Level(l.level.Load()) }

// SetLevel sets the level.
func (l *NopLogger) SetLevel(level ports.Level) { l.level.Store(int32(level)) }

var _ ports.Logger = (*NopLogger)(nil)
