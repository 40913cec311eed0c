package state

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNotStarted is returned when a step is finished without being started.
var ErrNotStarted = errors.New("step was not started")

// CancelCheck reports cooperative cancellation. A non-nil error aborts the transition.
type CancelCheck func() error

type stepState struct {
	status    Status
	timestamp Timestamp
	enabled   bool
	warnings  []Warning
}

// Machine holds the state of every step of one print or print object.
// All methods are safe for concurrent use.
type Machine[S ~int] struct {
	mu    sync.Mutex
	steps []stepState
}

// NewMachine creates a machine for count steps, all fresh and enabled.
func NewMachine[S ~int](count int) *Machine[S] {
	steps := make([]stepState, count)
	for i := range steps {
		steps[i].enabled = true
	}
	return &Machine[S]{steps: steps}
}

// Len returns the number of steps.
func (m *Machine[S]) Len() int {
	return len(m.steps)
}

// Status returns the current status of step.
func (m *Machine[S]) Status(step S) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[step].status
}

// IsDone reports whether step completed and has not been invalidated since.
func (m *Machine[S]) IsDone(step S) bool {
	return m.Status(step) == Done
}

// IsStarted reports whether step is currently running.
func (m *Machine[S]) IsStarted(step S) bool {
	return m.Status(step) == Started
}

// Timestamp returns the time of the last state change of step.
func (m *Machine[S]) Timestamp(step S) Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[step].timestamp
}

// Enable toggles whether step may run. A disabled step never starts.
func (m *Machine[S]) Enable(step S, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[step].enabled = enabled
}

// SetStarted marks step as running. It returns false without error when the step
// is disabled or already done; such a step must not be recomputed.
func (m *Machine[S]) SetStarted(step S, check CancelCheck) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if check != nil {
		if err := check(); err != nil {
			return false, err
		}
	}
	st := &m.steps[step]
	if !st.enabled || st.status == Done {
		return false, nil
	}
	st.status = Started
	st.timestamp = nextTimestamp()
	markNonCurrent(st.warnings)
	return true, nil
}

// SetDone marks a running step as finished and drops its stale warnings.
func (m *Machine[S]) SetDone(step S, check CancelCheck) (Timestamp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if check != nil {
		if err := check(); err != nil {
			return 0, err
		}
	}
	st := &m.steps[step]
	if st.status != Started {
		return 0, fmt.Errorf("%w: step %d is %s", ErrNotStarted, step, st.status)
	}
	st.status = Done
	st.timestamp = nextTimestamp()
	st.warnings = slices.DeleteFunc(st.warnings, func(w Warning) bool { return !w.Current })
	return st.timestamp, nil
}

// Invalidate forces a started or done step back to not-done. onCancel runs under
// the machine lock when something was invalidated and must not block.
func (m *Machine[S]) Invalidate(step S, onCancel func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	invalidated := m.invalidate(step)
	if invalidated && onCancel != nil {
		onCancel()
	}
	return invalidated
}

// InvalidateMany invalidates every listed step, calling onCancel at most once.
func (m *Machine[S]) InvalidateMany(steps []S, onCancel func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	invalidated := false
	for _, step := range steps {
		if m.invalidate(step) {
			invalidated = true
		}
	}
	if invalidated && onCancel != nil {
		onCancel()
	}
	return invalidated
}

// InvalidateAll invalidates every step.
func (m *Machine[S]) InvalidateAll(onCancel func()) bool {
	steps := make([]S, len(m.steps))
	for i := range steps {
		steps[i] = S(i)
	}
	return m.InvalidateMany(steps, onCancel)
}

func (m *Machine[S]) invalidate(step S) bool {
	st := &m.steps[step]
	switch st.status {
	case Started:
		st.status = Canceled
	case Done:
		st.status = Invalidated
	default:
		return false
	}
	st.timestamp = nextTimestamp()
	markNonCurrent(st.warnings)
	return true
}

// QueryResetDirty returns true once for a dirty step and resets it to fresh.
// The caller releases the step's data when it returns true.
func (m *Machine[S]) QueryResetDirty(step S) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &m.steps[step]
	if !st.status.IsDirty() {
		return false
	}
	st.status = Fresh
	return true
}

// MarkCanceled turns every running step into a canceled one.
// Called after a processing run was aborted.
func (m *Machine[S]) MarkCanceled() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.steps {
		if m.steps[i].status == Started {
			m.steps[i].status = Canceled
			m.steps[i].timestamp = nextTimestamp()
		}
	}
}

// AddWarning attaches a warning to step. A warning with the same non-zero id, or
// the same message, is refreshed instead of duplicated. Returns true when added.
func (m *Machine[S]) AddWarning(step S, level WarningLevel, msg string, id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &m.steps[step]
	for i := range st.warnings {
		w := &st.warnings[i]
		if (id != 0 && w.MessageID == id) || (id == 0 && w.Message == msg) {
			w.Level = level
			w.Message = msg
			w.Current = true
			return false
		}
	}
	st.warnings = append(st.warnings, Warning{Level: level, Message: msg, MessageID: id, Current: true})
	return true
}

// Warnings returns the current warnings of step.
func (m *Machine[S]) Warnings(step S) []Warning {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Warning
	for _, w := range m.steps[step].warnings {
		if w.Current {
			out = append(out, w)
		}
	}
	return out
}

func markNonCurrent(ws []Warning) {
	for i := range ws {
		ws[i].Current = false
	}
}
