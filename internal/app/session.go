// Package app runs slicing sessions: it loads scenes and configuration,
// processes the print in the background and exports the result.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/slicecore/internal/adapters/logging"
	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/domain/model"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// State is the lifecycle state of a session.
type State string

const (
	// StateIdle means nothing was processed since the last change.
	StateIdle State = "idle"
	// StateRunning means the print is being processed.
	StateRunning State = "running"
	// StateFinished means the last run completed.
	StateFinished State = "finished"
	// StateCanceled means the last run was stopped.
	StateCanceled State = "canceled"
	// StateFailed means the last run returned an error.
	StateFailed State = "failed"
)

// Event types for the session state machine.
const (
	EventStart  = "START"
	EventFinish = "FINISH"
	EventCancel = "CANCEL"
	EventFail   = "FAIL"
	EventReset  = "RESET"
)

var (
	// ErrBusy is returned when a run is requested while one is in progress.
	ErrBusy = errors.New("session is processing")
	// ErrNotFinished is returned by Export before a run completed.
	ErrNotFinished = errors.New("session has no finished run")
)

// Context is the statekit machine context of a session.
type Context struct {
	Runs      int
	Failures  int
	LastError error
	StartedAt time.Time
	Duration  time.Duration
}

type runtimeContext struct {
	mu  sync.RWMutex
	ctx Context
}

func (c *runtimeContext) recordStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.Runs++
	c.ctx.StartedAt = time.Now()
	c.ctx.LastError = nil
}

func (c *runtimeContext) recordEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.Duration = time.Since(c.ctx.StartedAt)
}

func (c *runtimeContext) recordError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx.Failures++
	c.ctx.LastError = err
}

func (c *runtimeContext) snapshot() Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ctx
}

func buildSessionMachine(rt *runtimeContext) (*statekit.Interpreter[Context], error) {
	machine, err := statekit.NewMachine[Context]("slicecore-session").
		WithInitial(statekit.StateID(StateIdle)).
		WithContext(rt.snapshot()).
		WithAction("recordStart", func(_ *Context, _ statekit.Event) {
			rt.recordStart()
		}).
		WithAction("recordEnd", func(_ *Context, _ statekit.Event) {
			rt.recordEnd()
		}).
		WithAction("recordError", func(_ *Context, event statekit.Event) {
			rt.recordEnd()
			if err, ok := event.Payload.(error); ok {
				rt.recordError(err)
			}
		}).
		State(statekit.StateID(StateIdle)).
		On(EventStart).Target(statekit.StateID(StateRunning)).Done().
		State(statekit.StateID(StateRunning)).
		OnEntry("recordStart").
		On(EventFinish).Target(statekit.StateID(StateFinished)).
		On(EventCancel).Target(statekit.StateID(StateCanceled)).
		On(EventFail).Target(statekit.StateID(StateFailed)).Done().
		State(statekit.StateID(StateFinished)).
		OnEntry("recordEnd").
		On(EventStart).Target(statekit.StateID(StateRunning)).
		On(EventReset).Target(statekit.StateID(StateIdle)).Done().
		State(statekit.StateID(StateCanceled)).
		OnEntry("recordEnd").
		On(EventStart).Target(statekit.StateID(StateRunning)).
		On(EventReset).Target(statekit.StateID(StateIdle)).Done().
		State(statekit.StateID(StateFailed)).
		OnEntry("recordError").
		On(EventStart).Target(statekit.StateID(StateRunning)).
		On(EventReset).Target(statekit.StateID(StateIdle)).Done().
		Build()
	if err != nil {
		return nil, err
	}
	return statekit.NewInterpreter(machine), nil
}

// Session owns a print and processes it on a background goroutine.
// Apply stops a running process before changing the print.
type Session struct {
	// applyMu serializes changes to the print with starting a run, so a run
	// never sees a half-applied print.
	applyMu sync.Mutex

	mu       sync.Mutex
	print    *print.Print
	interp   *statekit.Interpreter[Context]
	runtime  *runtimeContext
	logger   ports.Logger
	reporter ports.StatusReporter
	pool     *execution.Pool

	cancel  context.CancelFunc
	done    chan struct{}
	results []execution.StepResult
	err     error
}

// Option configures a session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l ports.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithReporter sets the receiver of progress updates.
func WithReporter(r ports.StatusReporter) Option {
	return func(s *Session) { s.reporter = r }
}

// WithWorkers sets the worker count of the processing pool. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Session) { s.pool = execution.NewPool(n) }
}

// NewSession creates an idle session with an empty print.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		print:    print.New(),
		runtime:  &runtimeContext{},
		reporter: ports.NopStatus,
		pool:     execution.NewPool(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	interp, err := buildSessionMachine(s.runtime)
	if err != nil {
		return nil, fmt.Errorf("failed to build session machine: %w", err)
	}
	s.interp = interp
	s.interp.Start()
	return s, nil
}

// Print returns the session print. It must not be modified while running.
func (s *Session) Print() *print.Print { return s.print }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State(s.interp.State().Value)
}

// Stats returns run counters of the session.
func (s *Session) Stats() Context {
	return s.runtime.snapshot()
}

// Results returns the stage results of the last completed run.
func (s *Session) Results() []execution.StepResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results
}

// Apply stops any running process and applies m and b. A session whose
// steps were invalidated returns to idle.
func (s *Session) Apply(ctx context.Context, m *model.Model, b config.Bundle) (print.ApplyStatus, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	if err := s.Stop(ctx); err != nil {
		return print.ApplyUnchanged, err
	}
	status, err := s.print.Apply(m, b)
	if err != nil {
		return status, err
	}
	if status == print.ApplyInvalidated {
		s.send(statekit.Event{Type: EventReset})
	}
	s.log().Debug(ctx, "print applied", ports.F("status", status.String()))
	return status, nil
}

// Validate checks the applied print.
func (s *Session) Validate() ([]string, error) {
	return s.print.Validate()
}

// Start processes the print in the background. It returns ErrBusy while a
// run is in progress and waits for a pending Apply to complete.
func (s *Session) Start(ctx context.Context) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.interp.Send(statekit.Event{Type: EventStart})

	rc := execution.NewRunContext(runCtx).
		WithPool(s.pool).
		WithReporter(s.reporter).
		WithLogger(s.logger)
	go s.run(rc, cancel, s.done)
	return nil
}

func (s *Session) run(rc execution.RunContext, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	start := time.Now()
	results, err := s.print.Process(rc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.results, s.err = results, err
	s.done, s.cancel = nil, nil
	switch {
	case err == nil:
		s.interp.Send(statekit.Event{Type: EventFinish})
		s.log().Info(rc.Context(), "slicing finished", ports.Elapsed(start))
	case errors.Is(err, execution.ErrCanceled):
		s.interp.Send(statekit.Event{Type: EventCancel})
		s.log().Info(rc.Context(), "slicing canceled", ports.Elapsed(start))
	default:
		s.interp.Send(statekit.Event{Type: EventFail, Payload: err})
		s.log().Error(rc.Context(), "slicing failed", ports.Err(err))
	}
}

// Wait blocks until the current run ends and returns its error.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Run processes the print and waits for the result.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	return s.Wait(ctx)
}

// Stop cancels a running process and waits for it to end.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Export writes the processed print to w.
func (s *Session) Export(ctx context.Context, w print.OutputWriter) error {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	if st := s.State(); st != StateFinished {
		return fmt.Errorf("%w: session is %s", ErrNotFinished, st)
	}
	rc := execution.NewRunContext(ctx).WithPool(s.pool).WithLogger(s.logger)
	return s.print.Export(rc, w)
}

// Close stops processing and the state machine.
func (s *Session) Close(ctx context.Context) error {
	err := s.Stop(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interp.Stop()
	return err
}

func (s *Session) send(e statekit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interp.Send(e)
}

func (s *Session) log() ports.Logger {
	if s.logger == nil {
		return logging.NewNopLogger()
	}
	return s.logger
}
