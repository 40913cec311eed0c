package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/execution"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

func update(t *testing.T, m sliceModel, msg tea.Msg) (sliceModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(sliceModel)
	require.True(t, ok)
	return out, cmd
}

func TestSliceModel_Init(t *testing.T) {
	t.Parallel()

	m := newSliceModel("Slicing", nil)
	assert.NotNil(t, m.Init(), "Init should start the spinner")
}

func TestSliceModel_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      ports.Status
		wantPercent int
		wantStep    string
		wantWarns   int
	}{
		{
			name:        "progress",
			status:      ports.Status{Percent: 35, Step: "Generating skirt and brim"},
			wantPercent: 35,
			wantStep:    "Generating skirt and brim",
		},
		{
			name:        "clamped",
			status:      ports.Status{Percent: 140, Step: "Done"},
			wantPercent: 100,
			wantStep:    "Done",
		},
		{
			name:        "message only",
			status:      ports.Status{Percent: -1, Step: "Slicing objects", Message: "layer 3"},
			wantPercent: 10,
			wantStep:    "Slicing objects",
		},
		{
			name:        "warning",
			status:      ports.Status{Percent: -1, Step: "Checking conflicts", Message: "objects collide", Warning: true},
			wantPercent: 10,
			wantStep:    "start",
			wantWarns:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newSliceModel("Slicing", nil)
			m.percent, m.step = 10, "start"

			m, cmd := update(t, m, StatusMsg{Status: tt.status})
			assert.Nil(t, cmd)
			assert.Equal(t, tt.wantPercent, m.percent)
			assert.Equal(t, tt.wantStep, m.step)
			assert.Len(t, m.warnings, tt.wantWarns)
		})
	}
}

func TestSliceModel_WarningsAreCapped(t *testing.T) {
	t.Parallel()

	m := newSliceModel("Slicing", nil)
	for i := range maxWarnings + 3 {
		m, _ = update(t, m, StatusMsg{Status: ports.Status{Warning: true, Message: string(rune('a' + i))}})
	}
	require.Len(t, m.warnings, maxWarnings)
	assert.Equal(t, "d", m.warnings[0])
	assert.Contains(t, m.View(), "! h")
}

func TestSliceModel_Cancel(t *testing.T) {
	t.Parallel()

	canceled := 0
	m := newSliceModel("Slicing", func() { canceled++ })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "the model waits for processing to stop")
	assert.True(t, m.canceled)
	assert.Equal(t, 1, canceled)
	assert.Contains(t, m.View(), "Canceling")

	m, cmd = update(t, m, DoneMsg{Err: execution.ErrCanceled})
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Slicing canceled")
}

func TestSliceModel_Done(t *testing.T) {
	t.Parallel()

	results := []execution.StepResult{
		execution.NewStepResult("Slicing objects", execution.OutcomeRan, nil),
		execution.NewStepResult("Generating support material", execution.OutcomeSkipped, nil),
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		m := newSliceModel("Slicing cube.yaml", nil)
		m, cmd := update(t, m, DoneMsg{Results: results})
		require.NotNil(t, cmd)
		assert.IsType(t, tea.QuitMsg{}, cmd())
		assert.Equal(t, 100, m.percent)

		view := m.View()
		assert.Contains(t, view, "Slicing cube.yaml")
		assert.Contains(t, view, "✓ Slicing objects")
		assert.Contains(t, view, "- Generating support material")
		assert.Contains(t, view, "Slicing finished")
		assert.Contains(t, view, "100%")
	})

	t.Run("failure", func(t *testing.T) {
		t.Parallel()

		m := newSliceModel("Slicing", nil)
		m.percent = 40
		failed := append(results[:1:1], execution.NewStepResult("Generating wipe tower", execution.OutcomeFailed, errors.New("boom")))
		m, _ = update(t, m, DoneMsg{Results: failed, Err: errors.New("boom")})
		assert.Equal(t, 40, m.percent)

		view := m.View()
		assert.Contains(t, view, "✗ Generating wipe tower")
		assert.Contains(t, view, "Slicing failed: boom")
	})
}

func TestSliceModel_KeysIgnoredWhenDone(t *testing.T) {
	t.Parallel()

	canceled := false
	m := newSliceModel("Slicing", func() { canceled = true })
	m, _ = update(t, m, DoneMsg{})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.False(t, canceled)
	assert.False(t, m.canceled)
}

func TestSliceModel_WindowResize(t *testing.T) {
	t.Parallel()

	m := newSliceModel("Slicing", nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 60, m.progress.width)

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 12, Height: 40})
	assert.Equal(t, 10, m.progress.width)
}

func TestProgramReporter_NoProgram(t *testing.T) {
	t.Parallel()

	r := NewProgramReporter()
	assert.NotPanics(t, func() {
		r.Report(context.Background(), ports.Status{Percent: 5, Step: "Slicing objects"})
	})
}
