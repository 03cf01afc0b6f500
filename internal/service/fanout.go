package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minFanoutConcurrency = 1

// runFanout executes work(0..total-1) on a fixed-size worker pool. Every index
// resolves to exactly one of sent or failed, so sent+failed == total always
// holds; a failed item never aborts its siblings. Once ctx expires, remaining
// items are counted failed without being attempted.
func runFanout(ctx context.Context, concurrency int, total int, logger *zap.Logger, work func(ctx context.Context, index int) error) (sent int, failed int) {
	if concurrency < minFanoutConcurrency {
		concurrency = minFanoutConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var sentCount, failedCount atomic.Int64
	jobs := make(chan int)

	var g errgroup.Group
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := range jobs {
				if ctx.Err() != nil {
					failedCount.Add(1)
					logger.Warn("fan-out deadline reached, skipping remaining dispatch",
						zap.Int("index", i),
					)
					continue
				}
				if err := work(ctx, i); err != nil {
					failedCount.Add(1)
					continue
				}
				sentCount.Add(1)
			}
			return nil
		})
	}

	for i := 0; i < total; i++ {
		jobs <- i
	}
	close(jobs)
	_ = g.Wait()

	return int(sentCount.Load()), int(failedCount.Load())
}
