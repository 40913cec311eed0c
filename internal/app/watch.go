package app

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/felixgeelhaar/slicecore/internal/adapters/logging"
	"github.com/felixgeelhaar/slicecore/internal/ports"
)

// WatchOptions configures watch mode behavior.
type WatchOptions struct {
	// Paths are the files whose changes trigger a run.
	Paths []string
	// Interval is the polling period. Defaults to one second.
	Interval time.Duration
	// Debounce is how long the files must stay unchanged before a run.
	Debounce time.Duration
	Logger   ports.Logger
}

// Watcher polls a set of files and calls its run function once they
// settle after a change.
type Watcher struct {
	paths    []string
	interval time.Duration
	debounce time.Duration
	runFn    func(ctx context.Context) error
	logger   ports.Logger

	mu   sync.Mutex
	runs int
}

// NewWatcher creates a watcher calling runFn on every settled change.
func NewWatcher(opts WatchOptions, runFn func(ctx context.Context) error) *Watcher {
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Watcher{
		paths:    slices.Clone(opts.Paths),
		interval: interval,
		debounce: opts.Debounce,
		runFn:    runFn,
		logger:   logger,
	}
}

// Runs returns how many times the run function was called.
func (w *Watcher) Runs() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs
}

// Run calls the run function once, then again after every change until ctx
// is canceled. Run errors are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	lastMod := make(map[string]time.Time)
	w.updateFileTimes(lastMod)
	w.trigger(ctx, nil)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var pending []string
	var changedAt time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if changed := w.checkForChanges(lastMod); len(changed) > 0 {
				for _, p := range changed {
					if !slices.Contains(pending, p) {
						pending = append(pending, p)
					}
				}
				changedAt = now
			}
			if len(pending) > 0 && now.Sub(changedAt) >= w.debounce {
				w.trigger(ctx, pending)
				pending = nil
			}
		}
	}
}

// updateFileTimes records the modification time of every watched file.
// Missing files are left out.
func (w *Watcher) updateFileTimes(times map[string]time.Time) {
	for _, p := range w.paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		times[p] = info.ModTime()
	}
}

// checkForChanges compares current file times with last known times and
// returns the created, modified and deleted paths.
func (w *Watcher) checkForChanges(lastMod map[string]time.Time) []string {
	current := make(map[string]time.Time)
	w.updateFileTimes(current)

	var changed []string
	for path, modTime := range current {
		if lastTime, exists := lastMod[path]; !exists || !modTime.Equal(lastTime) {
			changed = append(changed, path)
		}
	}
	for path := range lastMod {
		if _, exists := current[path]; !exists {
			changed = append(changed, path)
		}
	}

	clear(lastMod)
	for path, modTime := range current {
		lastMod[path] = modTime
	}
	slices.Sort(changed)
	return changed
}

func (w *Watcher) trigger(ctx context.Context, changed []string) {
	w.mu.Lock()
	w.runs++
	w.mu.Unlock()

	if len(changed) > 0 {
		w.logger.Info(ctx, "files changed", ports.F("paths", changed))
	}
	start := time.Now()
	if err := w.runFn(ctx); err != nil {
		w.logger.Error(ctx, "run failed", ports.Err(err), ports.Elapsed(start))
		return
	}
	w.logger.Info(ctx, "run completed", ports.Elapsed(start))
}
