package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultDetachedTimeout = 30 * time.Second

// Detached publishes in the background so request paths return without
// waiting for the broker. Sends still outlive the caller's cancellation
// and are bounded by timeout; a send that cannot complete in time is lost.
type Detached struct {
	next    Publisher
	timeout time.Duration
	wg      sync.WaitGroup
}

var _ Publisher = (*Detached)(nil)

func NewDetached(next Publisher, timeout time.Duration) *Detached {
	if timeout <= 0 {
		timeout = defaultDetachedTimeout
	}
	return &Detached{next: next, timeout: timeout}
}

// Publish always returns nil; failures are logged by the wrapped publisher
// and again here.
func (d *Detached) Publish(ctx context.Context, routingKey string, payload any, requestID string) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := d.next.Publish(pctx, routingKey, payload, requestID); err != nil {
			slog.WarnContext(pctx, "Background publish dropped",
				"routing_key", routingKey,
				slog.Any("error", err))
		}
	}()
	return nil
}

// Wait blocks until background sends finish.
func (d *Detached) Wait() {
	d.wg.Wait()
}
