package execution

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs data-parallel work over a fixed number of workers.
// Work is split statically into contiguous ranges, one goroutine per range.
type Pool struct {
	workers int
}

// NewPool creates a pool. workers <= 0 selects GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Ranges splits [0, n) into at most Workers() contiguous, non-empty ranges.
func (p *Pool) Ranges(n int) [][2]int {
	if n <= 0 {
		return nil
	}
	parts := min(p.workers, n)
	out := make([][2]int, parts)
	for i := 0; i < parts; i++ {
		out[i] = [2]int{i * n / parts, (i + 1) * n / parts}
	}
	return out
}

// ForEachRange calls fn once per range and blocks until all calls return.
// The first error cancels the context passed to the remaining calls.
func (p *Pool) ForEachRange(ctx context.Context, n int, fn func(ctx context.Context, lo, hi int) error) error {
	ranges := p.Ranges(n)
	if len(ranges) == 1 {
		return fn(ctx, ranges[0][0], ranges[0][1])
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		g.Go(func() error {
			return fn(gctx, r[0], r[1])
		})
	}
	return g.Wait()
}

// ForEach calls fn for every index in [0, n), checking for cancellation between items.
func (p *Pool) ForEach(rc RunContext, n int, fn func(rc RunContext, i int) error) error {
	return p.ForEachRange(rc.Context(), n, func(ctx context.Context, lo, hi int) error {
		sub := rc.WithContext(ctx)
		for i := lo; i < hi; i++ {
			if err := sub.Err(); err != nil {
				return err
			}
			if err := fn(sub, i); err != nil {
				return err
			}
		}
		return nil
	})
}
