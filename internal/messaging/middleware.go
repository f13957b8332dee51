package messaging

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// RetryConfig configures in-process retry of Requeue results.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	}
}

// WithRetry re-runs the handler while it asks for Requeue, sleeping with
// exponential backoff between attempts. Once attempts are exhausted the
// message is dead-lettered instead of going back to the queue.
func WithRetry(handler Handler, cfg RetryConfig) Handler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return func(ctx context.Context, env Envelope) Result {
		for attempt := 0; ; attempt++ {
			res := handler(ctx, env)
			if res != Requeue {
				return res
			}
			if attempt >= cfg.MaxAttempts-1 {
				slog.WarnContext(ctx, "Handler retries exhausted, dead-lettering",
					"routing_key", env.RoutingKey,
					"attempts", attempt+1)
				return DeadLetter
			}

			select {
			case <-ctx.Done():
				return Requeue
			case <-time.After(Backoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff)):
			}
		}
	}
}

// WithRecover turns a handler panic into DeadLetter so one poison message
// cannot take down its worker.
func WithRecover(handler Handler) Handler {
	return func(ctx context.Context, env Envelope) (res Result) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "Handler panic recovered",
					"routing_key", env.RoutingKey,
					"panic", r,
					"stack", string(debug.Stack()))
				res = DeadLetter
			}
		}()
		return handler(ctx, env)
	}
}
