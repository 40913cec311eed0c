// Package execution carries cancellation, worker pool, status reporting and logging
// through the processing pipeline, and runs ordered stages.
package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// ErrCanceled is returned by any pipeline operation interrupted by cancellation.
var ErrCanceled = errors.New("processing canceled")

// RunContext is passed explicitly to every pipeline call. It is a small value;
// With* methods return modified copies.
type RunContext struct {
	ctx      context.Context
	pool     *Pool
	reporter ports.StatusReporter
	logger   ports.Logger
}

// NewRunContext creates a RunContext with a GOMAXPROCS-sized pool, no status
// reporting and a discarding logger.
func NewRunContext(ctx context.Context) RunContext {
	return RunContext{
		ctx:      ctx,
		pool:     NewPool(0),
		reporter: ports.NopStatus,
		logger:   nopLogger{},
	}
}

// Context returns the underlying context.Context.
func (r RunContext) Context() context.Context {
	return r.ctx
}

// Pool returns the worker pool.
func (r RunContext) Pool() *Pool {
	return r.pool
}

// Logger returns the logger.
func (r RunContext) Logger() ports.Logger {
	return r.logger
}

// WithContext returns a copy bound to ctx.
func (r RunContext) WithContext(ctx context.Context) RunContext {
	r.ctx = ctx
	return r
}

// WithPool returns a copy using pool.
func (r RunContext) WithPool(pool *Pool) RunContext {
	if pool != nil {
		r.pool = pool
	}
	return r
}

// WithReporter returns a copy reporting to reporter.
func (r RunContext) WithReporter(reporter ports.StatusReporter) RunContext {
	if reporter != nil {
		r.reporter = reporter
	}
	return r
}

// WithLogger returns a copy logging to logger.
func (r RunContext) WithLogger(logger ports.Logger) RunContext {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Err returns an error wrapping ErrCanceled once the context is done.
func (r RunContext) Err() error {
	if err := r.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, err)
	}
	return nil
}

// Status forwards a progress update to the reporter.
func (r RunContext) Status(percent int, step, message string) {
	r.reporter.Report(r.ctx, ports.Status{Percent: percent, Step: step, Message: message})
}

// Warning forwards a warning notification to the reporter.
func (r RunContext) Warning(step, message string) {
	r.reporter.Report(r.ctx, ports.Status{Percent: -1, Step: step, Message: message, Warning: true})
}

type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...ports.Field) {}
func (nopLogger) Info(context.Context, string, ...ports.Field)  {}
func (nopLogger) Warn(context.Context, string, ...ports.Field)  {}
func (nopLogger) Error(context.Context, string, ...ports.Field) {}
func (n nopLogger) With(...ports.Field) ports.Logger             { return n }
func (nopLogger) Level() ports.Level                            { return ports.LevelError }
func (nopLogger) SetLevel(ports.Level)                          {}
