package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/felixgeelhaar/slicecore/internal/adapters/summary"
	"github.com/felixgeelhaar/slicecore/internal/domain/config"
	"github.com/felixgeelhaar/slicecore/internal/domain/print"
	"github.com/felixgeelhaar/slicecore/internal/ports"
	"github.com/felixgeelhaar/slicecore/internal/testutil"
	"github.com/felixgeelhaar/slicecore/internal/testutil/mocks"
)

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()

	s, err := NewSession(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func cubeInputs() Inputs {
	obj := testutil.NewObjectBuilder("cube").WithBox(20, 20, 3).Build()
	return Inputs{Model: testutil.NewModel(obj), Bundle: testutil.Bundle()}
}

func TestSession_Lifecycle(t *testing.T) {
	t.Parallel()

	rec := &mocks.StatusRecorder{}
	log := mocks.NewLogger()
	s := newSession(t, WithReporter(rec), WithLogger(log), WithWorkers(2))
	assert.Equal(t, StateIdle, s.State())

	in := cubeInputs()
	_, err := s.Apply(context.Background(), in.Model, in.Bundle)
	require.NoError(t, err)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateFinished, s.State())
	assert.NotEmpty(t, s.Results())
	assert.Equal(t, 1, s.Stats().Runs)
	assert.True(t, s.Print().IsObjectStepDone(print.StepIroning))
	assert.NotEmpty(t, rec.Steps())
	assert.Contains(t, log.Messages(ports.LevelInfo), "slicing finished")

	var buf bytes.Buffer
	require.NoError(t, s.Export(context.Background(), summary.NewStreamWriter(&buf)))
	assert.Contains(t, buf.String(), "name: cube")
}

func TestSession_ApplyResetsToIdle(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	in := cubeInputs()
	_, err := s.Apply(context.Background(), in.Model, in.Bundle)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))

	status, err := s.Apply(context.Background(), in.Model, testutil.Bundle(func(b *config.Bundle) {
		b.Region.FillAngle = 10
	}))
	require.NoError(t, err)
	assert.Equal(t, print.ApplyInvalidated, status)
	assert.Equal(t, StateIdle, s.State())

	err = s.Export(context.Background(), summary.NewStreamWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestSession_InvalidateKeys(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	in := cubeInputs()
	_, err := s.Apply(context.Background(), in.Model, in.Bundle)
	require.NoError(t, err)
	require.NoError(t, s.Run(context.Background()))

	changed, err := s.InvalidateKeys(context.Background(), []string{"skirts"})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, s.Print().IsStepDone(print.StepSkirtBrim))
	assert.True(t, s.Print().IsStepDone(print.StepWipeTower))

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, StateFinished, s.State())
	assert.Equal(t, 2, s.Stats().Runs)
}

func TestSession_ApplyWhileStarting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newSession(t, WithWorkers(2))
	in := cubeInputs()
	_, err := s.Apply(ctx, in.Model, in.Bundle)
	require.NoError(t, err)

	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			if i%2 == 1 {
				if err := s.Start(ctx); err != nil && !errors.Is(err, ErrBusy) {
					return err
				}
				return nil
			}
			obj := testutil.NewObjectBuilder("cube").
				WithBox(20, 20, 3+float64(i)*0.2).
				WithInstance(90+float64(i), 100).
				Build()
			_, err := s.Apply(ctx, testutil.NewModel(obj), testutil.Bundle())
			return err
		})
	}
	require.NoError(t, g.Wait())

	_ = s.Wait(ctx)
	_, err = s.Apply(ctx, in.Model, in.Bundle)
	require.NoError(t, err)
	require.NoError(t, s.Run(ctx))
	assert.Equal(t, StateFinished, s.State())
	assert.True(t, s.Print().IsObjectStepDone(print.StepIroning))
	assert.Len(t, s.Print().Objects()[0].Layers(), 15)
}

func TestSession_Canceled(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	err := s.Run(context.Background())
	require.NoError(t, err, "an empty print processes to nothing")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	in := cubeInputs()
	_, err = s.Apply(context.Background(), in.Model, in.Bundle)
	require.NoError(t, err)

	err = s.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, StateCanceled, s.State())
}

func TestSession_StopWhenIdle(t *testing.T) {
	t.Parallel()

	s := newSession(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
	assert.NoError(t, s.Wait(ctx))
}

func TestLoadInputs(t *testing.T) {
	t.Parallel()

	scene := testutil.WriteFixture(t, "two_cubes.yaml")
	cfg := testutil.WriteFixture(t, "two_extruders.ini")

	in, err := LoadInputs(scene, cfg)
	require.NoError(t, err)
	assert.Len(t, in.Model.Objects, 2)
	assert.Equal(t, 2, in.Bundle.Print.ExtruderCount())

	in, err = LoadInputs(scene, "")
	require.NoError(t, err)
	assert.Equal(t, 1, in.Bundle.Print.ExtruderCount())

	_, err = LoadInputs(scene, "missing.ini")
	assert.Error(t, err)
}

func TestSession_Reload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scene := testutil.WriteTempFile(t, dir, "scene.yaml", string(testutil.LoadFixture(t, "two_cubes.yaml")))
	cfg := testutil.WriteTempFile(t, dir, "printer.ini", "skirts = 1\n")

	s := newSession(t)
	status, err := s.Reload(context.Background(), scene, cfg)
	require.NoError(t, err)
	assert.Equal(t, print.ApplyInvalidated, status)
	require.NoError(t, s.Run(context.Background()))

	status, err = s.Reload(context.Background(), scene, cfg)
	require.NoError(t, err)
	assert.Equal(t, print.ApplyUnchanged, status)
	assert.Equal(t, StateFinished, s.State())

	testutil.WriteTempFile(t, dir, "printer.ini", "skirts = 2\n")
	status, err = s.Reload(context.Background(), scene, cfg)
	require.NoError(t, err)
	assert.Equal(t, print.ApplyInvalidated, status)
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.Print().IsObjectStepDone(print.StepSlice), "object steps survive a skirt change")

	_, err = s.Reload(context.Background(), filepath.Join(dir, "missing.yaml"), cfg)
	assert.Error(t, err)
}
