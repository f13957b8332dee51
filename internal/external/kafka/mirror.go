// Package kafka mirrors published events to a Kafka topic for downstream
// analytics. Mirroring is best effort and never blocks the publisher.
package kafka

import (
	"context"
	"log/slog"
	"time"

	"ProductOrderSaga/pkg/correlation"
	"ProductOrderSaga/pkg/metrics"

	"github.com/segmentio/kafka-go"
)

const routingKeyHeader = "routing_key"

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Mirror implements rabbitmq.Observer.
type Mirror struct {
	writer Writer
	topic  string
}

// NewMirror creates a mirror with an async writer: WriteMessages only
// enqueues, delivery outcomes are reported through Completion.
func NewMirror(brokers []string, topic string) *Mirror {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 50 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			status := "ok"
			if err != nil {
				status = "error"
				slog.Warn("Kafka mirror write failed",
					"topic", topic,
					"messages", len(msgs),
					slog.Any("error", err))
			}
			metrics.KafkaMirrorWrites.WithLabelValues(topic, status).Add(float64(len(msgs)))
		},
	}

	return newMirror(writer, topic)
}

func newMirror(w Writer, topic string) *Mirror {
	return &Mirror{writer: w, topic: topic}
}

// Observe forwards one published event keyed by its routing key.
func (m *Mirror) Observe(ctx context.Context, routingKey string, body []byte) {
	msg := kafka.Message{
		Key:   []byte(routingKey),
		Value: body,
		Headers: []kafka.Header{
			{Key: routingKeyHeader, Value: []byte(routingKey)},
		},
	}
	if reqID := correlation.FromContext(ctx); reqID != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: correlation.HeaderName, Value: []byte(reqID)})
	}

	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		metrics.KafkaMirrorWrites.WithLabelValues(m.topic, "error").Inc()
		slog.WarnContext(ctx, "Failed to mirror event to Kafka",
			"topic", m.topic,
			"routing_key", routingKey,
			slog.Any("error", err))
		return
	}
	slog.DebugContext(ctx, "Event mirrored to Kafka",
		"topic", m.topic,
		"routing_key", routingKey)
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}
