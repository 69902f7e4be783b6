package acquisition

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut runs fn for every index in [0, n) with at most workers in flight and
// returns the results in index order, whatever order they finish in. fn owns
// its error handling; a failed source reports ok=false and contributes
// nothing.
func fanOut[T any](ctx context.Context, workers, n int, fn func(ctx context.Context, i int) ([]T, bool)) (results [][]T, failed int) {
	if workers < 1 {
		workers = 1
	}
	results = make([][]T, n)
	okays := make([]bool, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			results[i], okays[i] = fn(gctx, i)
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range okays {
		if !ok {
			failed++
		}
	}
	return results, failed
}

// flatten concatenates per-source results in source order.
func flatten[T any](parts [][]T) []T {
	var total int
	for _, p := range parts {
		total += len(p)
	}
	out := make([]T, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
