package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/ports"
)

func TestStatusRecorder(t *testing.T) {
	t.Parallel()

	r := &StatusRecorder{}
	var rep ports.StatusReporter = r
	rep.Report(context.Background(), ports.Status{Percent: 10, Step: "slice"})
	rep.Report(context.Background(), ports.Status{Percent: 60, Step: "alert", Warning: true})

	assert.Equal(t, []string{"slice", "alert"}, r.Steps())
	require.Len(t, r.Warnings(), 1)
	assert.Equal(t, 60, r.Warnings()[0].Percent)
}

func TestLogger(t *testing.T) {
	t.Parallel()

	l := NewLogger()
	l.SetLevel(ports.LevelInfo)
	child := l.With(ports.F("object", "cube"))

	child.Debug(context.Background(), "hidden")
	child.Warn(context.Background(), "visible", ports.F("layer", 3))

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0].Message)
	v, ok := entries[0].Field("object")
	assert.True(t, ok)
	assert.Equal(t, "cube", v)
	assert.Equal(t, []string{"visible"}, l.Messages(ports.LevelWarn))
}
