package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testStep int

const (
	stepA testStep = iota
	stepB
	stepC
	stepCount
)

func TestMachine_Lifecycle(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	assert.Equal(t, Fresh, m.Status(stepA))

	started, err := m.SetStarted(stepA, nil)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, m.IsStarted(stepA))

	ts, err := m.SetDone(stepA, nil)
	require.NoError(t, err)
	assert.NotZero(t, ts)
	assert.True(t, m.IsDone(stepA))
	assert.Equal(t, ts, m.Timestamp(stepA))

	started, err = m.SetStarted(stepA, nil)
	require.NoError(t, err)
	assert.False(t, started, "done step is not restarted")
}

func TestMachine_SetDoneRequiresStarted(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	_, err := m.SetDone(stepB, nil)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, Fresh, m.Status(stepB))
}

func TestMachine_CancelCheckLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	canceled := errors.New("canceled")
	m := NewMachine[testStep](int(stepCount))

	started, err := m.SetStarted(stepA, func() error { return canceled })
	assert.ErrorIs(t, err, canceled)
	assert.False(t, started)
	assert.Equal(t, Fresh, m.Status(stepA))

	_, _ = m.SetStarted(stepA, nil)
	_, err = m.SetDone(stepA, func() error { return canceled })
	assert.ErrorIs(t, err, canceled)
	assert.Equal(t, Started, m.Status(stepA))
}

func TestMachine_Disabled(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	m.Enable(stepC, false)
	started, err := m.SetStarted(stepC, nil)
	require.NoError(t, err)
	assert.False(t, started)
}

func TestMachine_Invalidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(m *Machine[testStep])
		wantChanged bool
		wantStatus  Status
	}{
		{
			name:       "fresh stays fresh",
			setup:      func(*Machine[testStep]) {},
			wantStatus: Fresh,
		},
		{
			name: "started becomes canceled",
			setup: func(m *Machine[testStep]) {
				_, _ = m.SetStarted(stepA, nil)
			},
			wantChanged: true,
			wantStatus:  Canceled,
		},
		{
			name: "done becomes invalidated",
			setup: func(m *Machine[testStep]) {
				_, _ = m.SetStarted(stepA, nil)
				_, _ = m.SetDone(stepA, nil)
			},
			wantChanged: true,
			wantStatus:  Invalidated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := NewMachine[testStep](int(stepCount))
			tt.setup(m)

			calls := 0
			changed := m.Invalidate(stepA, func() { calls++ })
			assert.Equal(t, tt.wantChanged, changed)
			assert.Equal(t, tt.wantStatus, m.Status(stepA))
			if tt.wantChanged {
				assert.Equal(t, 1, calls)
				assert.True(t, m.Status(stepA).IsDirty())
			} else {
				assert.Zero(t, calls)
			}
		})
	}
}

func TestMachine_QueryResetDirty(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	_, _ = m.SetStarted(stepA, nil)
	_, _ = m.SetDone(stepA, nil)
	m.Invalidate(stepA, nil)

	assert.True(t, m.QueryResetDirty(stepA))
	assert.False(t, m.QueryResetDirty(stepA))
	assert.Equal(t, Fresh, m.Status(stepA))
}

func TestMachine_MarkCanceled(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	_, _ = m.SetStarted(stepA, nil)
	_, _ = m.SetStarted(stepB, nil)
	_, _ = m.SetDone(stepB, nil)
	m.MarkCanceled()

	assert.Equal(t, Canceled, m.Status(stepA))
	assert.Equal(t, Done, m.Status(stepB))
}

func TestMachine_Warnings(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	_, _ = m.SetStarted(stepA, nil)
	assert.True(t, m.AddWarning(stepA, WarningNonCritical, "first", 0))
	assert.False(t, m.AddWarning(stepA, WarningNonCritical, "first", 0), "deduplicated by message")
	assert.True(t, m.AddWarning(stepA, WarningCritical, "second", 7))
	assert.False(t, m.AddWarning(stepA, WarningCritical, "second, reworded", 7), "deduplicated by id")
	_, _ = m.SetDone(stepA, nil)

	ws := m.Warnings(stepA)
	require.Len(t, ws, 2)
	assert.Equal(t, "second, reworded", ws[1].Message)

	// a rerun that does not raise the warning again drops it
	m.Invalidate(stepA, nil)
	assert.Empty(t, m.Warnings(stepA))
	_, _ = m.SetStarted(stepA, nil)
	m.AddWarning(stepA, WarningCritical, "second", 7)
	_, _ = m.SetDone(stepA, nil)

	ws = m.Warnings(stepA)
	require.Len(t, ws, 1)
	assert.Equal(t, 7, ws[0].MessageID)
}

func TestMachine_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewMachine[testStep](int(stepCount))
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := m.SetStarted(stepA, nil); ok {
				_, _ = m.SetDone(stepA, nil)
			}
			m.Invalidate(stepB, nil)
			_ = m.IsDone(stepA)
		}()
	}
	wg.Wait()
	assert.Contains(t, []Status{Started, Done}, m.Status(stepA))
}

func TestDependencyGraph_Closure(t *testing.T) {
	t.Parallel()

	g := NewDependencyGraph[testStep]()
	require.NoError(t, g.Add(stepA, "a"))
	require.NoError(t, g.Add(stepB, "b"))
	require.NoError(t, g.Add(stepC, "c"))
	g.DependsOn(stepA, stepB)
	g.DependsOn(stepB, stepC)
	require.NoError(t, g.Validate())

	assert.Equal(t, []testStep{stepB, stepC}, g.Closure(stepA))
	assert.Equal(t, []testStep{stepC}, g.Closure(stepB))
	assert.Empty(t, g.Closure(stepC))

	order, err := g.TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []testStep{stepA, stepB, stepC}, order)
}

func TestDependencyGraph_Errors(t *testing.T) {
	t.Parallel()

	g := NewDependencyGraph[testStep]()
	require.NoError(t, g.Add(stepA, "a"))
	assert.ErrorIs(t, g.Add(stepA, "a"), ErrDuplicateStep)

	g.DependsOn(stepA, stepB)
	assert.ErrorIs(t, g.Validate(), ErrMissingDep)

	require.NoError(t, g.Add(stepB, "b"))
	g.DependsOn(stepB, stepA)
	assert.ErrorIs(t, g.Validate(), ErrCyclicDependency)
}

func TestSlot(t *testing.T) {
	t.Parallel()

	var s Slot[[]int]
	_, err := s.Load()
	assert.ErrorIs(t, err, ErrSlotEmpty)

	require.NoError(t, s.Store([]int{1, 2}))
	assert.ErrorIs(t, s.Store([]int{3}), ErrSlotWritten)

	v, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)

	s.Reset()
	assert.Equal(t, uint64(1), s.Generation())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrSlotEmpty)
	require.NoError(t, s.Store(nil))
}
