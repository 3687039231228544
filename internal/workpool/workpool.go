// Package workpool runs batches of independent tasks on a bounded number of
// goroutines.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// MaxAutoSize caps the automatically derived pool size.
const MaxAutoSize = 8

// Pool bounds how many tasks of a batch run at once. The zero value runs
// tasks one at a time.
type Pool struct {
	size int
}

// New returns a pool of the given size; size <= 0 selects DefaultSize.
func New(size int) *Pool {
	if size <= 0 {
		size = DefaultSize()
	}
	return &Pool{size: size}
}

// DefaultSize is min(NumCPU, MaxAutoSize).
func DefaultSize() int {
	return min(runtime.NumCPU(), MaxAutoSize)
}

// Size reports the concurrency limit.
func (p *Pool) Size() int {
	if p == nil || p.size <= 0 {
		return 1
	}
	return p.size
}

// Map applies fn to every item with at most p.Size() calls in flight and
// returns the results in input order. The batch completes before Map returns;
// the first error cancels the remaining tasks and is returned.
func Map[T, R any](ctx context.Context, p *Pool, items []T, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results, nil
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.Size())
	for i, item := range items {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := fn(groupCtx, i, item)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
