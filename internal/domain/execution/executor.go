package execution

import (
	"errors"
	"time"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// Outcome classifies how a stage ended.
type Outcome int

// Stage outcomes.
const (
	OutcomeRan Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeCanceled
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeRan:
		return "ran"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// StepResult captures the outcome of one stage.
type StepResult struct {
	step     string
	outcome  Outcome
	err      error
	duration time.Duration
}

// NewStepResult creates a StepResult.
func NewStepResult(step string, outcome Outcome, err error) StepResult {
	return StepResult{step: step, outcome: outcome, err: err}
}

// Step returns the stage name.
func (r StepResult) Step() string { return r.step }

// Outcome returns how the stage ended.
func (r StepResult) Outcome() Outcome { return r.outcome }

// Error returns the stage error, if any.
func (r StepResult) Error() error { return r.err }

// Duration returns the wall time of the stage.
func (r StepResult) Duration() time.Duration { return r.duration }

// Ran reports whether the stage did work.
func (r StepResult) Ran() bool { return r.outcome == OutcomeRan }

// WithDuration returns a copy with duration set.
func (r StepResult) WithDuration(d time.Duration) StepResult {
	r.duration = d
	return r
}

// Stage is one ordered unit of pipeline work. Run reports whether it did
// anything; a stage whose output is still valid returns false.
type Stage struct {
	Name    string
	Percent int
	Run     func(rc RunContext) (bool, error)
}

// Executor runs stages in order, stopping at the first failure.
type Executor struct{}

// NewExecutor creates an Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs stages sequentially on the calling goroutine.
// It returns the results of every stage attempted and the first error.
func (e *Executor) Execute(rc RunContext, stages []Stage) ([]StepResult, error) {
	results := make([]StepResult, 0, len(stages))
	log := rc.Logger()

	for _, st := range stages {
		if err := rc.Err(); err != nil {
			results = append(results, NewStepResult(st.Name, OutcomeCanceled, err))
			return results, err
		}

		rc.Status(st.Percent, st.Name, "")
		start := time.Now()
		ran, err := st.Run(rc)
		elapsed := time.Since(start)

		switch {
		case errors.Is(err, ErrCanceled):
			results = append(results, NewStepResult(st.Name, OutcomeCanceled, err).WithDuration(elapsed))
			log.Debug(rc.Context(), "stage canceled", ports.F("stage", st.Name))
			return results, err
		case err != nil:
			results = append(results, NewStepResult(st.Name, OutcomeFailed, err).WithDuration(elapsed))
			log.Error(rc.Context(), "stage failed", ports.F("stage", st.Name), ports.Err(err))
			return results, err
		case ran:
			results = append(results, NewStepResult(st.Name, OutcomeRan, nil).WithDuration(elapsed))
			log.Debug(rc.Context(), "stage finished", ports.F("stage", st.Name), ports.F("duration", elapsed))
		default:
			results = append(results, NewStepResult(st.Name, OutcomeSkipped, nil))
		}
	}
	return results, nil
}
