package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AMQPProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "message_processing_duration_seconds",
			Help:      "Message handler duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"routing_key", "queue", "result"},
	)

	AMQPMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "messages_processed_total",
			Help:      "Total number of consumed messages by handler result",
		},
		[]string{"routing_key", "queue", "result"},
	)

	AMQPMessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "messages_published_total",
			Help:      "Total number of publish attempts by outcome",
		},
		[]string{"routing_key", "status"},
	)

	// AMQPConnectionState holds the numeric ConnectionManager state
	// (0 disconnected, 1 connecting, 2 connected, 3 reconnecting).
	AMQPConnectionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "connection_state",
			Help:      "Current broker connection state",
		},
	)

	AMQPReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "amqp",
			Name:      "reconnects_total",
			Help:      "Total number of unexpected broker connection losses",
		},
	)

	KafkaMirrorWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kafka",
			Name:      "mirror_writes_total",
			Help:      "Total number of events mirrored to Kafka by outcome",
		},
		[]string{"topic", "status"},
	)
)

func init() {
	Registry.MustRegister(
		AMQPProcessingDuration,
		AMQPMessagesProcessed,
		AMQPMessagesPublished,
		AMQPConnectionState,
		AMQPReconnects,
		KafkaMirrorWrites,
	)
}
