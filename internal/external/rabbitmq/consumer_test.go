package rabbitmq

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ProductOrderSaga/internal/messaging"
	"ProductOrderSaga/pkg/correlation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testQueue = "order.created.product-service"

func startSubscription(t *testing.T, b *fakeBroker, workers int, handler messaging.Handler) *ConnectionManager {
	t.Helper()

	m, topo := startManager(t, b)
	pool := NewConsumerPool(m, topo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pool.Subscribe(ctx, Subscription{
			RoutingKey:        "order.created",
			Workers:           workers,
			PrefetchPerWorker: 1,
			Handler:           handler,
		})
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	waitConsumers(t, b, workers)
	return m
}

func waitConsumers(t *testing.T, b *fakeBroker, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		var calls int
		b.snapshot(func(b *fakeBroker) { calls = b.consumeCalls })
		return calls >= n
	}, 2*time.Second, time.Millisecond)
}

func waitResult(t *testing.T, b *fakeBroker, tag uint64) messaging.Result {
	t.Helper()
	var res messaging.Result
	require.Eventually(t, func() bool {
		var ok bool
		res, ok = b.result(tag)
		return ok
	}, 2*time.Second, time.Millisecond)
	return res
}

func TestConsumerPool_SettlesByResult(t *testing.T) {
	testCases := []struct {
		name     string
		handler  messaging.Handler
		expected messaging.Result
	}{
		{
			name:     "ack",
			handler:  func(context.Context, messaging.Envelope) messaging.Result { return messaging.Ack },
			expected: messaging.Ack,
		},
		{
			name:     "requeue",
			handler:  func(context.Context, messaging.Envelope) messaging.Result { return messaging.Requeue },
			expected: messaging.Requeue,
		},
		{
			name:     "dead letter",
			handler:  func(context.Context, messaging.Envelope) messaging.Result { return messaging.DeadLetter },
			expected: messaging.DeadLetter,
		},
		{
			name:     "panic is dead-lettered",
			handler:  func(context.Context, messaging.Envelope) messaging.Result { panic("boom") },
			expected: messaging.DeadLetter,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := newFakeBroker()
			startSubscription(t, b, 1, tc.handler)

			tag := b.deliver(testQueue, []byte(`{"orderId":1}`), "")
			assert.Equal(t, tc.expected, waitResult(t, b, tag))
		})
	}
}

func TestConsumerPool_WorkerSurvivesPoisonMessage(t *testing.T) {
	b := newFakeBroker()
	startSubscription(t, b, 1, func(_ context.Context, env messaging.Envelope) messaging.Result {
		if string(env.Body) == "poison" {
			panic("cannot handle")
		}
		return messaging.Ack
	})

	poison := b.deliver(testQueue, []byte("poison"), "")
	good := b.deliver(testQueue, []byte(`{"orderId":2}`), "")

	assert.Equal(t, messaging.DeadLetter, waitResult(t, b, poison))
	assert.Equal(t, messaging.Ack, waitResult(t, b, good))
}

func TestConsumerPool_DeclaresQueueOnceForAllWorkers(t *testing.T) {
	b := newFakeBroker()
	startSubscription(t, b, 3, func(context.Context, messaging.Envelope) messaging.Result {
		return messaging.Ack
	})

	b.snapshot(func(b *fakeBroker) {
		assert.Equal(t, 1, b.queueDeclares[testQueue])
		assert.Equal(t, 3, b.consumeCalls)
	})
}

func TestConsumerPool_PropagatesRequestID(t *testing.T) {
	type seen struct{ env, ctx string }
	seenCh := make(chan seen, 3)

	b := newFakeBroker()
	startSubscription(t, b, 1, func(ctx context.Context, env messaging.Envelope) messaging.Result {
		seenCh <- seen{env: env.RequestID, ctx: correlation.FromContext(ctx)}
		return messaging.Ack
	})

	b.deliver(testQueue, []byte(`{"orderId":1,"requestId":"R1"}`), "C1")
	got := <-seenCh
	assert.Equal(t, seen{env: "R1", ctx: "R1"}, got)

	b.deliver(testQueue, []byte(`{"orderId":1}`), "C2")
	got = <-seenCh
	assert.Equal(t, seen{env: "C2", ctx: "C2"}, got)

	b.deliver(testQueue, []byte(`{"orderId":1}`), "")
	got = <-seenCh
	assert.NotEmpty(t, got.env)
	assert.Equal(t, got.env, got.ctx)
}

func TestConsumerPool_ResumesAfterReconnect(t *testing.T) {
	var handled atomic.Int32
	b := newFakeBroker()
	m := startSubscription(t, b, 2, func(context.Context, messaging.Envelope) messaging.Result {
		handled.Add(1)
		return messaging.Ack
	})

	first := awaitReady(t, m)
	b.lastConn().drop()
	<-first.Done()

	waitConsumers(t, b, 4)
	b.snapshot(func(b *fakeBroker) {
		assert.Equal(t, 2, b.queueDeclares[testQueue])
	})

	tag := b.deliver(testQueue, []byte(`{"orderId":1}`), "")
	assert.Equal(t, messaging.Ack, waitResult(t, b, tag))
	assert.EqualValues(t, 1, handled.Load())
}

func TestConsumerPool_ConcurrentWorkers(t *testing.T) {
	const workers = 4

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		release = make(chan struct{})
	)
	b := newFakeBroker()
	startSubscription(t, b, workers, func(context.Context, messaging.Envelope) messaging.Result {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		<-release

		mu.Lock()
		active--
		mu.Unlock()
		return messaging.Ack
	})

	tags := make([]uint64, 0, workers)
	for i := 0; i < workers; i++ {
		tags = append(tags, b.deliver(testQueue, []byte(`{}`), ""))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return maxSeen == workers
	}, 2*time.Second, time.Millisecond)
	close(release)

	for _, tag := range tags {
		assert.Equal(t, messaging.Ack, waitResult(t, b, tag))
	}
}

func TestConsumerPool_RejectsInvalidSubscription(t *testing.T) {
	b := newFakeBroker()
	m, topo := startManager(t, b)
	pool := NewConsumerPool(m, topo)

	err := pool.Subscribe(context.Background(), Subscription{RoutingKey: "order.created", Workers: 0, PrefetchPerWorker: 1})
	assert.Error(t, err)
}

// staleFirst hands out a generation whose connection already died, then
// defers to the real manager.
type staleFirst struct {
	once  sync.Once
	stale *Generation
	next  readiness
}

func (s *staleFirst) AwaitReady(ctx context.Context) (*Generation, error) {
	var gen *Generation
	s.once.Do(func() { gen = s.stale })
	if gen != nil {
		return gen, nil
	}
	return s.next.AwaitReady(ctx)
}

func TestConsumerPool_ConnectionLostBeforeDeclareIsNotFatal(t *testing.T) {
	b := newFakeBroker()
	m, topo := startManager(t, b)
	awaitReady(t, m)

	// given: readiness fired, but the connection dropped before the queue
	// could be declared
	dead := &fakeConn{broker: b, closed: make(chan struct{})}
	dead.drop()
	stale := newGeneration(1)
	stale.conn = dead
	stale.markReady()

	pool := &ConsumerPool{conn: &staleFirst{stale: stale, next: m}, topology: topo}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- pool.Subscribe(ctx, Subscription{
			RoutingKey:        "order.created",
			Workers:           1,
			PrefetchPerWorker: 1,
			Handler: func(context.Context, messaging.Envelope) messaging.Result {
				return messaging.Ack
			},
		})
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	// when
	waitConsumers(t, b, 1)
	tag := b.deliver(testQueue, []byte(`{"orderId":1}`), "")

	// then
	assert.Equal(t, messaging.Ack, waitResult(t, b, tag))
	assert.Len(t, done, 0, "Subscribe must keep running")
}
