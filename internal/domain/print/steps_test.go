package print

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/config"
)

func TestStepGraphs(t *testing.T) {
	t.Parallel()

	_, err := objectGraph()
	require.NoError(t, err)
	_, err = printGraph()
	require.NoError(t, err)

	assert.ElementsMatch(t, ObjectSteps(), objectCascade(StepSlice))
	assert.ElementsMatch(t, []ObjectStep{StepInfill, StepIroning, StepSupportSpotsSearch}, objectCascade(StepInfill))
	assert.ElementsMatch(t, []PrintStep{StepSkirtBrim, StepGCodeExport}, printCascade(StepSkirtBrim))
	assert.Equal(t, []PrintStep{StepGCodeExport}, printCascade(StepGCodeExport))
}

func TestStepLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"print step", StepSkirtBrim.Label(), "Skirt And Brim"},
		{"object step", StepSupportSpotsSearch.Label(), "Support Spots Search"},
		{"out of range", PrintStep(42).String(), "print step 42"},
		{"object out of range", ObjectStep(-1).String(), "object step -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestEveryOptionIsClassified(t *testing.T) {
	t.Parallel()

	for _, set := range []any{config.PrintConfig{}, config.ObjectConfig{}, config.RegionConfig{}} {
		for _, key := range config.OptionKeys(set) {
			assert.True(t, isClassified(key), "option %q has no invalidation effect", key)
		}
	}
	assert.False(t, isClassified("no_such_option"))
}
