// Package mocks provides recording test doubles for the ports interfaces.
package mocks

import (
	"context"
	"sync"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// StatusRecorder is a ports.StatusReporter that keeps every update.
type StatusRecorder struct {
	mu      sync.Mutex
	updates []ports.Status
}

// Report records s.
func (r *StatusRecorder) Report(_ context.Context, s ports.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, s)
}

// Updates returns a copy of the recorded updates.
func (r *StatusRecorder) Updates() []ports.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.Status(nil), r.updates...)
}

// Steps returns the step names in report order.
func (r *StatusRecorder) Steps() []string {
	updates := r.Updates()
	out := make([]string, len(updates))
	for i, u := range updates {
		out[i] = u.Step
	}
	return out
}

// Warnings returns the updates flagged as warnings.
func (r *StatusRecorder) Warnings() []ports.Status {
	var out []ports.Status
	for _, u := range r.Updates() {
		if u.Warning {
			out = append(out, u)
		}
	}
	return out
}
