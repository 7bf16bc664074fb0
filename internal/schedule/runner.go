package schedule

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunAll runs every task concurrently until ctx is cancelled. The first task
// to fail cancels the others and its error is returned.
func RunAll(ctx context.Context, logger *zap.Logger, tasks ...Task) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			logger.Info("task started", zap.String("task", task.Name()))
			err := task.Run(ctx)
			if err != nil {
				logger.Error("task failed", zap.String("task", task.Name()), zap.Error(err))
				return fmt.Errorf("%s: %w", task.Name(), err)
			}
			logger.Info("task stopped", zap.String("task", task.Name()))
			return nil
		})
	}

	return g.Wait()
}
