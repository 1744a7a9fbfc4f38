// Package batch runs collections of independent work items with a bounded
// concurrency ceiling. One item's failure never aborts the rest; results are
// reported in input order regardless of completion order.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when a caller passes a non-positive limit.
const DefaultConcurrency = 10

// Result holds the outcome of one work item.
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn over items with at most limit invocations in flight.
// The returned slice aligns index-for-index with items.
func Run[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result[R], len(items))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		g.Go(func() error {
			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}
	// Item errors are captured per slot; Wait never returns one.
	_ = g.Wait()

	return results
}
