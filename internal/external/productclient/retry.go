package productclient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ProductOrderSaga/internal/domain/order"
	"ProductOrderSaga/internal/messaging"
)

// RetryConfig bounds how long a lookup keeps trying while the product
// service is unavailable.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// retryUnavailable calls fn until it succeeds, fails with anything but
// order.ErrProductUnavailable, or runs out of attempts. fn always runs at
// least once.
func retryUnavailable(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, order.ErrProductUnavailable) {
			return err
		}
		if attempt+1 >= cfg.MaxAttempts {
			return err
		}

		delay := messaging.Backoff(attempt, cfg.BaseDelay, cfg.MaxDelay)
		slog.DebugContext(ctx, "Product service unavailable, retrying",
			"attempt", attempt+1,
			"delay", delay.String(),
			slog.Any("error", err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
