package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// mapChunks runs fn over every chunk with bounded concurrency and returns
// the results in input order. The first failure cancels the remaining work
// and aborts the whole map stage; callers never see partial results.
func mapChunks[T any](ctx context.Context, chunks []string, concurrency int, fn func(ctx context.Context, chunk string) (T, error)) ([]T, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	results := make([]T, len(chunks))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for i, chunk := range chunks {
		i, chunk := i, chunk
		group.Go(func() error {
			out, err := fn(ctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
