package app

import (
	"context"
	"log/slog"

	"ProductOrderSaga/internal/external/rabbitmq"

	"golang.org/x/sync/errgroup"
)

// StartWorkers runs every subscription until ctx is cancelled. The returned
// group's Wait reports the first subscription that failed for good.
func StartWorkers(ctx context.Context, pool *rabbitmq.ConsumerPool, subs []rabbitmq.Subscription) *errgroup.Group {
	var g errgroup.Group
	for _, sub := range subs {
		g.Go(func() error {
			slog.InfoContext(ctx, "Starting consumer",
				"routing_key", sub.RoutingKey,
				"workers", sub.Workers)
			if err := pool.Subscribe(ctx, sub); err != nil {
				slog.ErrorContext(ctx, "Consumer failed",
					"routing_key", sub.RoutingKey,
					slog.Any("error", err))
				return err
			}
			return nil
		})
	}
	return &g
}
