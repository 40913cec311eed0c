package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/adapters/summary"
	"github.com/felixgeelhaar/slicecore/internal/testutil"
)

func TestSliceCmd_Stdout(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")

	stdout, _, err := executeCommand(t, "slice", scene, "--no-progress")
	require.NoError(t, err)
	assert.Contains(t, stdout, "fingerprint:")
	assert.Contains(t, stdout, "name: left")
	assert.Contains(t, stdout, "name: right")
}

func TestSliceCmd_OutputFile(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	out := filepath.Join(t.TempDir(), "report.yaml")

	stdout, stderr, err := executeCommand(t, "slice", scene, "--output", out, "--workers", "2")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Report written to "+out)

	report, err := summary.Load(out)
	require.NoError(t, err)
	require.Len(t, report.Objects, 2)
	assert.Equal(t, "left", report.Objects[0].Name)
	assert.NotEmpty(t, report.Fingerprint)
}

func TestSliceCmd_Deterministic(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")

	first, _, err := executeCommand(t, "slice", scene, "--no-progress", "--workers", "1")
	require.NoError(t, err)
	second, _, err := executeCommand(t, "slice", scene, "--no-progress", "--workers", "4")
	require.NoError(t, err)
	testutil.AssertYAMLEquals(t, first, second)
}

func TestSliceCmd_Errors(t *testing.T) {
	dir := t.TempDir()
	scene := testutil.WriteFixture(t, "two_cubes.yaml")

	tests := []struct {
		name string
		args []string
	}{
		{"missing scene", []string{"slice", filepath.Join(dir, "missing.yaml")}},
		{"missing config", []string{"slice", scene, "--config", filepath.Join(dir, "missing.ini")}},
		{"no arguments", []string{"slice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestSliceCmd_Unprintable(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	cfg := testutil.WriteTempFile(t, t.TempDir(), "tall.ini", "layer_height = 0.6\n")

	_, _, err := executeCommand(t, "slice", scene, "--config", cfg, "--no-progress")
	require.Error(t, err)
	assert.Contains(t, formatError(err), "Layer height can't be greater than nozzle diameter")
}

func TestValidateCmd(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")

	stdout, _, err := executeCommand(t, "validate", scene)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 object(s) printable")
}

func TestValidateCmd_JSON(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	cfg := testutil.WriteFixture(t, "two_extruders.ini")

	stdout, _, err := executeCommand(t, "validate", scene, "--config", cfg, "--json")
	require.NoError(t, err)

	var result validationResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.Objects)
	assert.Empty(t, result.Error)
}

func TestValidateCmd_Invalid(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	cfg := testutil.WriteTempFile(t, t.TempDir(), "tall.ini", "layer_height = 0.6\n")

	stdout, _, err := executeCommand(t, "validate", scene, "--config", cfg, "--json")
	require.Error(t, err)

	var result validationResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "Layer height")
}

func TestInvalidateCmd_Keys(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")

	stdout, _, err := executeCommand(t, "invalidate", scene, "--keys", "skirt_distance")
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Slice")
	assert.Contains(t, stdout, "✓ Wipe Tower")
	assert.Contains(t, stdout, "↻ Skirt And Brim")
	assert.NotContains(t, stdout, "Gcode Export")
}

func TestInvalidateCmd_Against(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	cfg := testutil.WriteTempFile(t, t.TempDir(), "fine.ini", "layer_height = 0.1\n")

	stdout, _, err := executeCommand(t, "invalidate", scene, "--against", cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "↻ Slice")
	assert.Contains(t, stdout, "↻ Skirt And Brim")
}

func TestInvalidateCmd_RequiresChange(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")

	_, _, err := executeCommand(t, "invalidate", scene)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--against or --keys")
}

func TestWatchCmd(t *testing.T) {
	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	out := filepath.Join(t.TempDir(), "report.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, stderr, err := executeCommandContext(t, ctx, "watch", scene, "--output", out, "--interval", "10ms", "--debounce", "0s")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Report written to "+out)

	report, err := summary.Load(out)
	require.NoError(t, err)
	assert.Len(t, report.Objects, 2)
}
