package health

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
)

// KafkaChecker checks that at least one mirror broker accepts connections.
type KafkaChecker struct {
	brokers []string
	dialer  *kafka.Dialer
}

func NewKafkaChecker(brokers []string) *KafkaChecker {
	return &KafkaChecker{brokers: brokers, dialer: &kafka.Dialer{DualStack: true}}
}

func (c *KafkaChecker) Name() string {
	return "kafka"
}

func (c *KafkaChecker) Check(ctx context.Context) Result {
	for _, broker := range c.brokers {
		conn, err := c.dialer.DialContext(ctx, "tcp", broker)
		if err == nil {
			_ = conn.Close()
			return Result{Status: StatusUp}
		}
	}
	return Result{Status: StatusDown, Message: "unreachable: " + strings.Join(c.brokers, ",")}
}
