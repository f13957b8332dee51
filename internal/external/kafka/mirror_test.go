package kafka

import (
	"context"
	"errors"
	"testing"

	"ProductOrderSaga/pkg/correlation"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestMirror_Observe(t *testing.T) {
	w := &fakeWriter{}
	m := newMirror(w, "events.mirror")
	ctx := correlation.WithID(context.Background(), "R1")

	m.Observe(ctx, "order.updated", []byte(`{"orderId":1}`))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "order.updated", string(msg.Key))
	assert.JSONEq(t, `{"orderId":1}`, string(msg.Value))
	assert.Contains(t, msg.Headers, kafka.Header{Key: routingKeyHeader, Value: []byte("order.updated")})
	assert.Contains(t, msg.Headers, kafka.Header{Key: correlation.HeaderName, Value: []byte("R1")})
}

func TestMirror_WriteErrorIsSwallowed(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	m := newMirror(w, "events.mirror")

	assert.NotPanics(t, func() {
		m.Observe(context.Background(), "order.created", []byte(`{}`))
	})
	assert.Empty(t, w.msgs)

	require.NoError(t, m.Close())
	assert.True(t, w.closed)
}
