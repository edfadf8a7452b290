// Package scheduler implements the work-parallel scheduler consumed by
// the type-check pipeline (spec.md §6 "Scheduler interface consumed"):
// with_parallel(is_parallel bool), plus a parallel map used by
// parse/analyze. It is built on golang.org/x/sync/errgroup, generalizing
// the teacher's test-only use of errgroup for bounded structured
// concurrency (internal/mcp/integration_test.go) into a production
// scheduler component.
package scheduler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Scheduler fans work out to a worker pool, or runs it inline, depending
// on its parallel mode.
type Scheduler struct {
	maxWorkers int
	parallel   bool
}

// New builds a scheduler capped at maxWorkers concurrent goroutines when
// running in parallel mode. maxWorkers <= 0 means runtime.NumCPU().
func New(maxWorkers int) *Scheduler {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	return &Scheduler{maxWorkers: maxWorkers}
}

// WithParallel returns a scheduler view configured for the requested
// parallelism, per spec.md §4.4 Stage 2 ("Use the scheduler in parallel
// mode iff len(check) > 5"). The receiver is unmodified.
func (s *Scheduler) WithParallel(parallel bool) *Scheduler {
	return &Scheduler{maxWorkers: s.maxWorkers, parallel: parallel}
}

// IsParallel reports the scheduler's current mode.
func (s *Scheduler) IsParallel() bool { return s.parallel }

// Map applies fn to every item, in parallel bounded by maxWorkers when
// the scheduler is in parallel mode, otherwise sequentially in order. It
// returns the first error that occurs — matching spec.md §7.6: scheduler
// failures are fatal and propagate to the caller. Sequential mode stops
// at that error; in parallel mode the remaining items are still run, with
// the context errgroup cancelled on the first error.
func Map[T any, R any](ctx context.Context, s *Scheduler, items []T, fn func(context.Context, T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if !s.parallel || len(items) <= 1 {
		for i, item := range items {
			r, err := fn(ctx, item)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
