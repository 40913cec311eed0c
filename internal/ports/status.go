package ports

import "context"

// Status is a progress update emitted while a print is processed.
type Status struct {
	Percent int
	Step    string
	Message string
	// Warning is set when the update reports a new print warning.
	Warning bool
}

// StatusReporter receives progress updates. Implementations must be safe for
// concurrent use and must not block for long; updates arrive from pipeline workers.
type StatusReporter interface {
	Report(ctx context.Context, s Status)
}

// StatusFunc adapts a function to StatusReporter.
type StatusFunc func(ctx context.Context, s Status)

// Report calls f.
func (f StatusFunc) Report(ctx context.Context, s Status) {
	f(ctx, s)
}

// NopStatus discards all updates.
var NopStatus StatusReporter = StatusFunc(func(context.Context, Status) {})
