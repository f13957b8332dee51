package health

import "context"

// ConnectionStater is implemented by the broker connection manager.
type ConnectionStater interface {
	Connected() bool
	StateName() string
}

// RabbitMQChecker reports the broker connection state without dialing.
type RabbitMQChecker struct {
	conn ConnectionStater
}

func NewRabbitMQChecker(conn ConnectionStater) *RabbitMQChecker {
	return &RabbitMQChecker{conn: conn}
}

func (c *RabbitMQChecker) Name() string {
	return "rabbitmq"
}

func (c *RabbitMQChecker) Check(_ context.Context) Result {
	if c.conn.Connected() {
		return Result{Status: StatusUp}
	}
	return Result{Status: StatusDown, Message: "connection " + c.conn.StateName()}
}
