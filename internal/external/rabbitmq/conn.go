package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ProductOrderSaga/internal/messaging"
	"ProductOrderSaga/pkg/metrics"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrTopology aborts start-up when the base topology cannot be declared.
	ErrTopology = errors.New("topology setup failed")
	ErrClosed   = errors.New("connection manager closed")
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Generation is one physical connection. Ready fires once the connection
// and its topology are usable; Done fires when it is gone for good.
type Generation struct {
	id   uint64
	conn Connection

	ready     chan struct{}
	done      chan struct{}
	readyOnce sync.Once
	doneOnce  sync.Once
}

func newGeneration(id uint64) *Generation {
	return &Generation{
		id:    id,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (g *Generation) ID() uint64 { return g.id }

func (g *Generation) Done() <-chan struct{} { return g.done }

// Channel opens a new AMQP channel on this generation's connection.
func (g *Generation) Channel() (Channel, error) {
	if g.conn == nil {
		return nil, ErrClosed
	}
	return g.conn.Channel()
}

func (g *Generation) markReady() { g.readyOnce.Do(func() { close(g.ready) }) }
func (g *Generation) markDone()  { g.doneOnce.Do(func() { close(g.done) }) }

// OnConnect runs after every successful dial, before waiters are released.
type OnConnect func(ctx context.Context, gen *Generation) error

type ConnectionConfig struct {
	URL               string
	ReconnectDelay    time.Duration
	ReconnectMaxDelay time.Duration
}

type Option func(*ConnectionManager)

// WithDialer replaces the AMQP dialer, mostly for tests.
func WithDialer(dial DialFunc) Option {
	return func(m *ConnectionManager) { m.dial = dial }
}

// ConnectionManager owns the broker connection for the whole process and
// replaces it whenever it drops.
type ConnectionManager struct {
	cfg       ConnectionConfig
	dial      DialFunc
	onConnect []OnConnect

	stop     chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	state  State
	gen    *Generation
	closed bool
}

func NewConnectionManager(cfg ConnectionConfig, opts ...Option) *ConnectionManager {
	m := &ConnectionManager{
		cfg:  cfg,
		dial: Dial,
		stop: make(chan struct{}),
		gen:  newGeneration(1),
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.AMQPConnectionState.Set(float64(Disconnected))
	return m
}

// OnConnect registers a hook. Call before Run.
func (m *ConnectionManager) OnConnect(hook OnConnect) {
	m.onConnect = append(m.onConnect, hook)
}

// Run connects and keeps the connection alive until ctx is cancelled or
// Close is called. Dial failures are retried forever; only a hook failure
// on the very first connection is returned.
func (m *ConnectionManager) Run(ctx context.Context) error {
	defer m.Close()

	attempt := 0
	established := false
	for {
		if m.stopped(ctx) {
			return nil
		}

		gen := m.current()
		m.setState(Connecting)

		conn, err := m.dial(m.cfg.URL)
		if err != nil {
			slog.WarnContext(ctx, "Broker dial failed",
				"generation", gen.ID(),
				"attempt", attempt+1,
				slog.Any("error", err))
			m.setState(Reconnecting)
			if !m.sleep(ctx, attempt) {
				return nil
			}
			attempt++
			continue
		}

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		gen.conn = conn
		m.mu.Unlock()

		closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

		if err := m.runHooks(ctx, gen); err != nil {
			_ = conn.Close()
			if !established {
				slog.ErrorContext(ctx, "Broker topology setup failed", slog.Any("error", err))
				return fmt.Errorf("%w: %w", ErrTopology, err)
			}
			slog.ErrorContext(ctx, "Broker topology setup failed after reconnect, retrying",
				"generation", gen.ID(),
				slog.Any("error", err))
			m.rotate()
			m.setState(Reconnecting)
			if !m.sleep(ctx, attempt) {
				return nil
			}
			attempt++
			continue
		}

		established = true
		attempt = 0
		m.setState(Connected)
		gen.markReady()
		slog.InfoContext(ctx, "Broker connected", "generation", gen.ID())

		select {
		case <-ctx.Done():
			return nil
		case <-m.stop:
			return nil
		case amqpErr := <-closeCh:
			if m.stopped(ctx) {
				return nil
			}
			metrics.AMQPReconnects.Inc()
			slog.WarnContext(ctx, "Broker connection lost",
				"generation", gen.ID(),
				slog.Any("error", amqpErr))
			m.rotate()
			m.setState(Reconnecting)
			if !m.sleep(ctx, attempt) {
				return nil
			}
			attempt++
		}
	}
}

// AwaitReady blocks until the current generation is connected and returns
// it. Callers must not hold on to a generation after its Done fires.
func (m *ConnectionManager) AwaitReady(ctx context.Context) (*Generation, error) {
	for {
		m.mu.Lock()
		gen, closed := m.gen, m.closed
		m.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}

		select {
		case <-gen.ready:
			select {
			case <-gen.done:
				continue
			default:
				return gen, nil
			}
		case <-gen.done:
			continue
		case <-m.stop:
			return nil, ErrClosed
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close stops the reconnect loop and closes the live connection.
func (m *ConnectionManager) Close() error {
	var err error
	m.stopOnce.Do(func() {
		close(m.stop)

		m.mu.Lock()
		m.closed = true
		gen := m.gen
		conn := gen.conn
		m.mu.Unlock()

		if conn != nil && !conn.IsClosed() {
			err = conn.Close()
		}
		gen.markDone()
		m.setState(Disconnected)
		slog.Info("Broker connection closed")
	})
	return err
}

func (m *ConnectionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnectionManager) Connected() bool { return m.State() == Connected }

func (m *ConnectionManager) StateName() string { return m.State().String() }

func (m *ConnectionManager) current() *Generation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// rotate installs a fresh pending generation before retiring the old one,
// so anyone woken by the old Done finds the new one.
func (m *ConnectionManager) rotate() {
	m.mu.Lock()
	old := m.gen
	m.gen = newGeneration(old.id + 1)
	m.mu.Unlock()
	old.markDone()
}

func (m *ConnectionManager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev == s {
		return
	}
	metrics.AMQPConnectionState.Set(float64(s))
	slog.Info("Broker connection state changed", "from", prev.String(), "to", s.String())
}

func (m *ConnectionManager) runHooks(ctx context.Context, gen *Generation) error {
	for _, hook := range m.onConnect {
		if err := hook(ctx, gen); err != nil {
			return err
		}
	}
	return nil
}

func (m *ConnectionManager) sleep(ctx context.Context, attempt int) bool {
	delay := messaging.Backoff(attempt, m.cfg.ReconnectDelay, m.cfg.ReconnectMaxDelay)
	slog.InfoContext(ctx, "Reconnecting to broker", "delay", delay.String(), "attempt", attempt+1)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-m.stop:
		return false
	}
}

func (m *ConnectionManager) stopped(ctx context.Context) bool {
	select {
	case <-m.stop:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
