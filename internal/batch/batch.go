// Package batch runs I/O-bound work over a slice in fixed-size groups: members
// of a group run concurrently, groups run one after another.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the group size used when callers pass size < 1
const DefaultSize = 5

// Progress is called after each group completes
type Progress func(done, total, batch, batches int)

// Run applies fn to every item and returns the results in input order.
// fn owns its failures: it returns a value, never an error, so one bad item
// cannot abort its group. A cancelled ctx stops new groups from starting;
// results of skipped items are left as the zero value.
func Run[T, R any](ctx context.Context, items []T, size int, fn func(context.Context, T) R, onBatch Progress) []R {
	if size < 1 {
		size = DefaultSize
	}

	results := make([]R, len(items))
	batches := Count(len(items), size)

	for b := 0; b < batches; b++ {
		if ctx.Err() != nil {
			break
		}

		start := b * size
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				results[i] = fn(ctx, items[i])
				return nil
			})
		}
		_ = g.Wait()

		if onBatch != nil {
			onBatch(end, len(items), b+1, batches)
		}
	}

	return results
}

// Count returns how many groups of size cover n items
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size < 1 {
		size = DefaultSize
	}
	return (n + size - 1) / size
}
