package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ProductOrderSaga/internal/messaging"
	"ProductOrderSaga/pkg/correlation"
	"ProductOrderSaga/pkg/metrics"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrPublish = errors.New("publish failed")

type readiness interface {
	AwaitReady(ctx context.Context) (*Generation, error)
}

// Observer sees every message after the broker accepted it.
type Observer interface {
	Observe(ctx context.Context, routingKey string, body []byte)
}

// Publisher implements messaging.Publisher on the topic exchange.
// It keeps one channel per connection generation; AMQP channels are not
// safe for concurrent publishing, so sends are serialised.
type Publisher struct {
	conn      readiness
	exchange  string
	observers []Observer
	now       func() time.Time

	mu    sync.Mutex
	genID uint64
	ch    Channel
}

var _ messaging.Publisher = (*Publisher)(nil)

func NewPublisher(conn *ConnectionManager, exchange string, observers ...Observer) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Publisher{
		conn:      conn,
		exchange:  exchange,
		observers: observers,
		now:       time.Now,
	}
}

// Publish stamps payload with requestId and timestamp and sends it as a
// persistent JSON message. It waits for the connection while the broker is
// unavailable, bounded by ctx. Broker confirms are not requested.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any, requestID string) (err error) {
	ctx, span := tracer.Start(ctx, "amqp.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", p.exchange),
			attribute.String("messaging.rabbitmq.destination.routing_key", routingKey),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	fallbackID := correlation.FromContext(ctx)
	if fallbackID == "" {
		fallbackID = correlation.NewID()
	}

	now := p.now()
	body, reqID, err := messaging.Stamp(payload, requestID, fallbackID, now)
	if err != nil {
		return p.fail(ctx, routingKey, requestID, err)
	}
	span.SetAttributes(attribute.String("messaging.message.conversation_id", reqID))

	gen, err := p.conn.AwaitReady(ctx)
	if err != nil {
		return p.fail(ctx, routingKey, reqID, err)
	}

	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: reqID,
		MessageId:     uuid.NewString(),
		Timestamp:     now.UTC(),
		Body:          body,
	}
	if err := p.send(ctx, gen, routingKey, msg); err != nil {
		return p.fail(ctx, routingKey, reqID, err)
	}

	metrics.AMQPMessagesPublished.WithLabelValues(routingKey, "ok").Inc()
	slog.DebugContext(ctx, "Message published",
		"exchange", p.exchange,
		"routing_key", routingKey,
		"message_id", msg.MessageId)

	for _, o := range p.observers {
		o.Observe(ctx, routingKey, body)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, gen *Generation, routingKey string, msg amqp.Publishing) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.genID != gen.ID() {
		if p.ch != nil {
			_ = p.ch.Close()
			p.ch = nil
		}
		ch, err := gen.Channel()
		if err != nil {
			return fmt.Errorf("open channel: %w", err)
		}
		p.ch, p.genID = ch, gen.ID()
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		// the channel may be dead; reopen on the next publish
		_ = p.ch.Close()
		p.ch = nil
		return err
	}
	return nil
}

func (p *Publisher) fail(ctx context.Context, routingKey, requestID string, err error) error {
	metrics.AMQPMessagesPublished.WithLabelValues(routingKey, "error").Inc()
	slog.ErrorContext(ctx, "Failed to publish message",
		"routing_key", routingKey,
		"publish_request_id", requestID,
		slog.Any("error", err))
	return fmt.Errorf("%w: %s: %w", ErrPublish, routingKey, err)
}

// Close releases the publishing channel. The connection is owned by the
// ConnectionManager.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
