package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/slicecore/internal/ports"
	"github.com/felixgeelhaar/slicecore/internal/testutil"
	"github.com/felixgeelhaar/slicecore/internal/testutil/mocks"
)

func TestNewWatcher_Defaults(t *testing.T) {
	t.Parallel()

	w := NewWatcher(WatchOptions{Paths: []string{"scene.yaml"}}, func(context.Context) error { return nil })
	assert.Equal(t, time.Second, w.interval)
	assert.Zero(t, w.debounce)
	assert.NotNil(t, w.logger)
	assert.Zero(t, w.Runs())
}

func TestWatcher_CheckForChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scene := testutil.WriteTempFile(t, dir, "scene.yaml", "objects: []\n")
	cfg := filepath.Join(dir, "printer.ini")

	w := NewWatcher(WatchOptions{Paths: []string{scene, cfg}}, nil)
	lastMod := make(map[string]time.Time)
	w.updateFileTimes(lastMod)
	require.Len(t, lastMod, 1)
	assert.Empty(t, w.checkForChanges(lastMod))

	// created
	testutil.WriteTempFile(t, dir, "printer.ini", "skirts = 2\n")
	assert.Equal(t, []string{cfg}, w.checkForChanges(lastMod))

	// modified
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(scene, later, later))
	assert.Equal(t, []string{scene}, w.checkForChanges(lastMod))

	// deleted
	require.NoError(t, os.Remove(cfg))
	assert.Equal(t, []string{cfg}, w.checkForChanges(lastMod))
	assert.Empty(t, w.checkForChanges(lastMod))
}

func TestWatcher_Run(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scene := testutil.WriteTempFile(t, dir, "scene.yaml", "objects: []\n")
	logger := mocks.NewLogger()

	var calls atomic.Int32
	w := NewWatcher(WatchOptions{
		Paths:    []string{scene},
		Interval: 5 * time.Millisecond,
		Logger:   logger,
	}, func(context.Context) error {
		if calls.Add(1) == 2 {
			return errors.New("bad scene")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Runs() == 1 }, time.Second, time.Millisecond)

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(scene, later, later))
	require.Eventually(t, func() bool { return w.Runs() == 2 }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	assert.Contains(t, logger.Messages(ports.LevelInfo), "files changed")
	assert.Contains(t, logger.Messages(ports.LevelError), "run failed")
}

func TestWatcher_Debounce(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	scene := testutil.WriteTempFile(t, dir, "scene.yaml", "objects: []\n")

	w := NewWatcher(WatchOptions{
		Paths:    []string{scene},
		Interval: 5 * time.Millisecond,
		Debounce: time.Hour,
	}, func(context.Context) error { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		later := time.Now().Add(time.Minute)
		_ = os.Chtimes(scene, later, later)
	}()
	require.ErrorIs(t, w.Run(ctx), context.DeadlineExceeded)
	assert.Equal(t, 1, w.Runs(), "changes within the debounce window do not run")
}
