// Package workerpool runs independent tasks with bounded concurrency and
// streams their results back in completion order.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run starts work for every item with at most workers running at once and
// returns a channel of results that is closed after the last one.
//
// Tasks never cancel each other. A panicking task is converted into a result
// by recovered. Once ctx is cancelled no new items are dispatched; tasks
// already running complete with a context that is not cancelled. The caller
// must drain the channel.
func Run[I, R any](ctx context.Context, items []I, workers int, work func(ctx context.Context, item I) R, recovered func(item I, panicValue any) R) <-chan R {
	if workers < 1 {
		workers = 1
	}
	out := make(chan R, workers)

	var g errgroup.Group
	g.SetLimit(workers)

	taskCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(out)

		for _, item := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				out <- runOne(taskCtx, item, work, recovered)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

func runOne[I, R any](ctx context.Context, item I, work func(context.Context, I) R, recovered func(I, any) R) (result R) {
	defer func() {
		if p := recover(); p != nil {
			result = recovered(item, p)
		}
	}()
	return work(ctx, item)
}
