// Package tui renders slicing progress in the terminal.
package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
)

// ProcessFunc runs the slicing pipeline until it ends or ctx is canceled.
type ProcessFunc func(ctx context.Context) ([]execution.StepResult, error)

// ProgressOptions configures the progress display.
type ProgressOptions struct {
	Title  string
	Input  io.Reader
	Output io.Writer
}

// NewProgressOptions creates default progress options.
func NewProgressOptions() ProgressOptions {
	return ProgressOptions{Title: "Slicing"}
}

// WithTitle sets the header line.
func (o ProgressOptions) WithTitle(title string) ProgressOptions {
	o.Title = title
	return o
}

// WithIO sets the terminal streams. Nil streams keep the bubbletea defaults.
func (o ProgressOptions) WithIO(in io.Reader, out io.Writer) ProgressOptions {
	o.Input, o.Output = in, out
	return o
}

// ProgressResult holds the outcome of a displayed run.
type ProgressResult struct {
	Results  []execution.StepResult
	Canceled bool
}

// RunProgress runs process while rendering its status updates, which reach
// the display through reporter. Canceling from the keyboard cancels the
// context handed to process. The returned error is the processing error.
func RunProgress(ctx context.Context, reporter *ProgramReporter, process ProcessFunc, opts ProgressOptions) (*ProgressResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newSliceModel(opts.Title, cancel)
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	p := tea.NewProgram(model, progOpts...)
	if reporter != nil {
		reporter.attach(p)
		defer reporter.attach(nil)
	}

	type outcome struct {
		results []execution.StepResult
		err     error
	}
	finished := make(chan outcome, 1)
	go func() {
		results, err := process(runCtx)
		finished <- outcome{results, err}
		p.Send(DoneMsg{Results: results, Err: err})
	}()

	finalModel, runErr := p.Run()
	// The program may end before processing does; make sure the worker stops.
	if runErr != nil {
		cancel()
	}
	res := <-finished
	if runErr != nil && res.err == nil {
		return nil, fmt.Errorf("progress display failed: %w", runErr)
	}

	m, ok := finalModel.(sliceModel)
	canceled := ok && m.canceled
	return &ProgressResult{Results: res.results, Canceled: canceled}, res.err
}
