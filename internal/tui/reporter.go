package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// ProgramReporter forwards status updates to a running bubbletea program.
// Updates sent before a program is attached are dropped.
type ProgramReporter struct {
	mu sync.RWMutex
	p  *tea.Program
}

var _ ports.StatusReporter = (*ProgramReporter)(nil)

// NewProgramReporter returns a reporter without a program.
func NewProgramReporter() *ProgramReporter {
	return &ProgramReporter{}
}

// Report implements ports.StatusReporter.
func (r *ProgramReporter) Report(_ context.Context, s ports.Status) {
	r.mu.RLock()
	p := r.p
	r.mu.RUnlock()
	if p != nil {
		p.Send(StatusMsg{Status: s})
	}
}

func (r *ProgramReporter) attach(p *tea.Program) {
	r.mu.Lock()
	r.p = p
	r.mu.Unlock()
}
