package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionManager_RetriesDialUntilConnected(t *testing.T) {
	b := newFakeBroker()
	b.failNextDials(3)

	m, _ := startManager(t, b)
	gen := awaitReady(t, m)

	assert.Equal(t, Connected, m.State())
	assert.True(t, m.Connected())
	assert.Equal(t, "connected", m.StateName())
	b.snapshot(func(b *fakeBroker) {
		assert.Equal(t, 4, b.dials)
	})
	assert.NotNil(t, gen)
}

func TestConnectionManager_NewGenerationAfterConnectionLoss(t *testing.T) {
	b := newFakeBroker()
	m, _ := startManager(t, b)

	first := awaitReady(t, m)
	b.lastConn().drop()

	select {
	case <-first.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("old generation was not retired")
	}

	second := awaitReady(t, m)
	assert.Greater(t, second.ID(), first.ID())

	// topology is redeclared on every connect
	b.snapshot(func(b *fakeBroker) {
		assert.Equal(t, 2, len(b.conns))
		assert.Equal(t, 4, b.exchangeDeclares)
	})
}

func TestConnectionManager_TopologyFailureIsFatalOnFirstConnect(t *testing.T) {
	b := newFakeBroker()
	b.exchangeErr = errors.New("access refused")

	m := NewConnectionManager(ConnectionConfig{ReconnectDelay: time.Millisecond}, WithDialer(b.dial))
	topo := NewTopology("", "product-service")
	m.OnConnect(topo.Ensure)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := m.Run(ctx)
	require.ErrorIs(t, err, ErrTopology)
	assert.Equal(t, Disconnected, m.State())

	_, err = m.AwaitReady(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectionManager_TopologyFailureAfterReconnectIsRetried(t *testing.T) {
	b := newFakeBroker()
	m, _ := startManager(t, b)
	first := awaitReady(t, m)

	b.snapshot(func(b *fakeBroker) { b.exchangeErr = errors.New("temporarily unavailable") })
	b.lastConn().drop()
	<-first.Done()

	// let at least one redeclare fail before the broker recovers
	require.Eventually(t, func() bool {
		var dials int
		b.snapshot(func(b *fakeBroker) { dials = b.dials })
		return dials >= 3
	}, 2*time.Second, time.Millisecond)
	b.snapshot(func(b *fakeBroker) { b.exchangeErr = nil })

	second := awaitReady(t, m)
	assert.Greater(t, second.ID(), first.ID())
}

func TestConnectionManager_AwaitReadyHonoursContext(t *testing.T) {
	b := newFakeBroker()
	b.failNextDials(1 << 20)
	m, _ := startManager(t, b)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.AwaitReady(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, m.Connected())
}

func TestConnectionManager_CloseReleasesWaiters(t *testing.T) {
	b := newFakeBroker()
	b.failNextDials(1 << 20)
	m, _ := startManager(t, b)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.AwaitReady(context.Background())
		errCh <- err
	}()

	require.NoError(t, m.Close())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not released")
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "reconnecting", Reconnecting.String())
}
