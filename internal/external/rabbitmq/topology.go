package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange    = "events"
	DeadLetterExchange = "dead_letter_exchange"
	DeadLetterQueue    = "dead_letters"
)

// Topology declares the exchanges and queues this service relies on.
// Declarations are serialised, and subscription queues are declared at
// most once per connection generation.
type Topology struct {
	exchange    string
	serviceName string

	mu       sync.Mutex
	genID    uint64
	declared map[string]struct{}
}

func NewTopology(exchange, serviceName string) *Topology {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Topology{
		exchange:    exchange,
		serviceName: serviceName,
		declared:    make(map[string]struct{}),
	}
}

func (t *Topology) Exchange() string { return t.exchange }

// QueueName is the durable queue shared by every instance of this service
// for the given routing key.
func (t *Topology) QueueName(routingKey string) string {
	return routingKey + "." + t.serviceName
}

// Ensure declares the topic exchange and the dead-letter exchange and queue.
// It is registered as the ConnectionManager's OnConnect hook.
func (t *Topology) Ensure(ctx context.Context, gen *Generation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked(gen.ID())

	ch, err := gen.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(t.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", t.exchange, err)
	}
	if err := ch.ExchangeDeclare(DeadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", DeadLetterQueue, err)
	}
	if err := ch.QueueBind(DeadLetterQueue, "", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", DeadLetterQueue, err)
	}

	slog.InfoContext(ctx, "Broker topology declared",
		"exchange", t.exchange,
		"dead_letter_exchange", DeadLetterExchange,
		"generation", gen.ID())
	return nil
}

// EnsureSubscription declares and binds the queue for routingKey on gen,
// unless that was already done for this generation. Returns the queue name.
func (t *Topology) EnsureSubscription(gen *Generation, routingKey string) (string, error) {
	queue := t.QueueName(routingKey)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen.ID() < t.genID {
		return "", fmt.Errorf("generation %d superseded by %d", gen.ID(), t.genID)
	}
	t.resetLocked(gen.ID())

	if _, ok := t.declared[queue]; ok {
		return queue, nil
	}

	ch, err := gen.Channel()
	if err != nil {
		return "", fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	args := amqp.Table{"x-dead-letter-exchange": DeadLetterExchange}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return "", fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, t.exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s to %s: %w", queue, routingKey, err)
	}

	t.declared[queue] = struct{}{}
	slog.Info("Subscription queue declared",
		"queue", queue,
		"routing_key", routingKey,
		"generation", gen.ID())
	return queue, nil
}

func (t *Topology) resetLocked(genID uint64) {
	if t.genID == genID {
		return
	}
	t.genID = genID
	clear(t.declared)
}
