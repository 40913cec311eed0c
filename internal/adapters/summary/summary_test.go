package summary

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/domain/print"
	"github.com/felixgeelhaar/slicecore/internal/testutil"
)

func processedOutput(t *testing.T) *print.Output {
	t.Helper()

	p := print.New()
	obj := testutil.NewObjectBuilder("cube").WithBox(20, 20, 2).WithInstance(100, 100).Build()
	_, err := p.Apply(testutil.NewModel(obj), testutil.Bundle())
	require.NoError(t, err)
	_, err = p.Process(testutil.RunContext(t))
	require.NoError(t, err)
	return p.Output()
}

func TestNewReport(t *testing.T) {
	t.Parallel()

	out := processedOutput(t)
	r := NewReport(out)

	assert.Equal(t, out.Fingerprint(), r.Fingerprint)
	assert.Equal(t, []int{0}, r.Extruders)
	require.Len(t, r.Objects, 1)
	assert.Equal(t, "cube", r.Objects[0].Name)
	assert.Equal(t, 10, r.Objects[0].Layers)
	assert.InDelta(t, 2.0, r.Objects[0].Height, 1e-9)
	assert.Equal(t, 1, r.Skirt.Loops)
	assert.Positive(t, r.Skirt.Length)
	assert.Nil(t, r.WipeTower)
	assert.Nil(t, r.Conflict)
	assert.NotEmpty(t, r.Volumes)
	require.NotNil(t, r.FirstLayerBounds)
	assert.Less(t, r.FirstLayerBounds.MinX, 90.0)
	assert.Greater(t, r.FirstLayerBounds.MaxX, 110.0)
}

func TestYAMLWriter_File(t *testing.T) {
	t.Parallel()

	out := processedOutput(t)
	path := filepath.Join(t.TempDir(), "reports", "cube.yaml")

	require.NoError(t, NewFileWriter(path).Write(context.Background(), out))
	testutil.AssertFileContains(t, path, "fingerprint: "+out.Fingerprint())

	loaded, err := Load(path)
	require.NoError(t, err)
	testutil.AssertNoDiff(t, NewReport(out), loaded)
}

func TestYAMLWriter_Stream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, NewStreamWriter(&buf).Write(context.Background(), processedOutput(t)))
	assert.Contains(t, buf.String(), "name: cube")
}

func TestYAMLWriter_Errors(t *testing.T) {
	t.Parallel()

	out := processedOutput(t)

	err := (&YAMLWriter{}).Write(context.Background(), out)
	assert.ErrorIs(t, err, ErrWriteFailed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewStreamWriter(&bytes.Buffer{}).Write(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestYAMLWriter_Export(t *testing.T) {
	t.Parallel()

	p := print.New()
	_, err := p.Apply(testutil.NewModel(testutil.NewObjectBuilder("cube").WithBox(10, 10, 1).Build()), testutil.Bundle())
	require.NoError(t, err)
	rc := testutil.RunContext(t)
	_, err = p.Process(rc)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Export(rc, NewStreamWriter(&buf)))
	assert.True(t, p.IsStepDone(print.StepGCodeExport))
	assert.Contains(t, buf.String(), "skirt:")
}
