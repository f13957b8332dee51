package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ProductOrderSaga/internal/messaging"
	"ProductOrderSaga/pkg/correlation"
	"ProductOrderSaga/pkg/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const channelRetryDelay = time.Second

var errDeliveriesClosed = errors.New("delivery channel closed")

// Subscription binds a handler to a routing key with a fixed number of
// competing workers.
type Subscription struct {
	RoutingKey        string
	Workers           int
	PrefetchPerWorker int
	Handler           messaging.Handler
}

func (s Subscription) validate() error {
	switch {
	case s.RoutingKey == "":
		return errors.New("routing key is required")
	case s.Workers < 1:
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	case s.PrefetchPerWorker < 1:
		return fmt.Errorf("prefetch must be positive, got %d", s.PrefetchPerWorker)
	case s.Handler == nil:
		return errors.New("handler is required")
	}
	return nil
}

// ConsumerPool runs subscriptions. Every worker owns its channel and its
// prefetch window, so a slow handler only throttles its own worker.
type ConsumerPool struct {
	conn     readiness
	topology *Topology
}

func NewConsumerPool(conn *ConnectionManager, topology *Topology) *ConsumerPool {
	return &ConsumerPool{conn: conn, topology: topology}
}

// Subscribe runs the workers for sub and blocks until ctx is cancelled or
// the connection manager is closed. Only an invalid subscription is an
// error; broker failures are waited out by the workers, which declare the
// queue on every generation they attach to.
func (p *ConsumerPool) Subscribe(ctx context.Context, sub Subscription) error {
	if err := sub.validate(); err != nil {
		return fmt.Errorf("subscribe %s: %w", sub.RoutingKey, err)
	}
	queue := p.topology.QueueName(sub.RoutingKey)

	slog.InfoContext(ctx, "Subscription started",
		"queue", queue,
		"routing_key", sub.RoutingKey,
		"workers", sub.Workers,
		"prefetch", sub.PrefetchPerWorker)

	handler := messaging.WithRecover(sub.Handler)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < sub.Workers; i++ {
		worker := i
		g.Go(func() error {
			return p.runWorker(gctx, sub, handler, worker)
		})
	}
	err := g.Wait()

	slog.InfoContext(ctx, "Subscription stopped", "queue", queue)
	return err
}

func (p *ConsumerPool) runWorker(ctx context.Context, sub Subscription, handler messaging.Handler, worker int) error {
	for {
		gen, err := p.conn.AwaitReady(ctx)
		if err != nil {
			return ignoreShutdown(ctx, err)
		}

		err = p.consume(ctx, gen, sub, handler, worker)
		if ctx.Err() != nil {
			return nil
		}
		slog.WarnContext(ctx, "Consumer worker interrupted, waiting for broker",
			"routing_key", sub.RoutingKey,
			"worker", worker,
			"generation", gen.ID(),
			slog.Any("error", err))

		select {
		case <-gen.Done():
		case <-time.After(channelRetryDelay):
		case <-ctx.Done():
			return nil
		}
	}
}

func (p *ConsumerPool) consume(ctx context.Context, gen *Generation, sub Subscription, handler messaging.Handler, worker int) error {
	queue, err := p.topology.EnsureSubscription(gen, sub.RoutingKey)
	if err != nil {
		return err
	}

	ch, err := gen.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(sub.PrefetchPerWorker, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	tag := fmt.Sprintf("%s-%d-%d", queue, worker, gen.ID())
	deliveries, err := ch.Consume(queue, tag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	slog.DebugContext(ctx, "Consumer worker attached",
		"queue", queue,
		"worker", worker,
		"generation", gen.ID())

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			p.dispatch(ctx, sub.RoutingKey, queue, handler, d)
		}
	}
}

// dispatch runs the handler to completion, detached from ctx cancellation,
// and settles the delivery according to its result.
func (p *ConsumerPool) dispatch(ctx context.Context, routingKey, queue string, handler messaging.Handler, d amqp.Delivery) {
	reqID := messaging.RequestIDFromBody(d.Body)
	if reqID == "" {
		reqID = d.CorrelationId
	}
	if reqID == "" {
		reqID = correlation.NewID()
	}

	msgCtx := correlation.WithID(context.WithoutCancel(ctx), reqID)
	msgCtx, span := tracer.Start(msgCtx, "amqp.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", queue),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
			attribute.String("messaging.message.conversation_id", reqID),
		))
	defer span.End()

	env := messaging.Envelope{
		RoutingKey:  d.RoutingKey,
		Body:        d.Body,
		RequestID:   reqID,
		Timestamp:   d.Timestamp,
		DeliveryTag: d.DeliveryTag,
		Redelivered: d.Redelivered,
	}
	if env.RoutingKey == "" {
		env.RoutingKey = routingKey
	}

	slog.DebugContext(msgCtx, "Message received",
		"queue", queue,
		"routing_key", env.RoutingKey,
		"delivery_tag", d.DeliveryTag,
		"redelivered", d.Redelivered)

	start := time.Now()
	res := handler(msgCtx, env)
	elapsed := time.Since(start)

	if err := settle(d, res); err != nil {
		// the channel is gone; the broker redelivers the message
		slog.ErrorContext(msgCtx, "Failed to settle message",
			"queue", queue,
			"result", res.String(),
			"delivery_tag", d.DeliveryTag,
			slog.Any("error", err))
	}

	span.SetAttributes(attribute.String("messaging.result", res.String()))
	metrics.AMQPProcessingDuration.WithLabelValues(routingKey, queue, res.String()).Observe(elapsed.Seconds())
	metrics.AMQPMessagesProcessed.WithLabelValues(routingKey, queue, res.String()).Inc()

	if res == messaging.DeadLetter {
		slog.WarnContext(msgCtx, "Message dead-lettered",
			"queue", queue,
			"routing_key", env.RoutingKey,
			"delivery_tag", d.DeliveryTag)
	}
}

func settle(d amqp.Delivery, res messaging.Result) error {
	switch res {
	case messaging.Ack:
		return d.Ack(false)
	case messaging.Requeue:
		return d.Nack(false, true)
	default:
		return d.Nack(false, false)
	}
}

func ignoreShutdown(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}
