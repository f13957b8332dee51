package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"ProductOrderSaga/config"
	"ProductOrderSaga/internal/external/kafka"
	"ProductOrderSaga/internal/external/rabbitmq"
	"ProductOrderSaga/internal/external/redis"
	"ProductOrderSaga/internal/messaging"
	"ProductOrderSaga/pkg/health"
	"ProductOrderSaga/pkg/observability"
	"ProductOrderSaga/pkg/postgres"
)

const teardownTimeout = 5 * time.Second

// infra is everything both services share: storage, cache, broker and the
// optional Kafka mirror.
type infra struct {
	pg        *postgres.Postgres
	cache     *redis.Client
	conn      *rabbitmq.ConnectionManager
	publisher *rabbitmq.Publisher
	consumers *rabbitmq.ConsumerPool
	mirror    *kafka.Mirror
	health    *health.Registry
	retry     messaging.RetryConfig

	shutdownTracer func(context.Context) error
}

func newInfra(ctx context.Context, cfg config.Config, migrations fs.FS) (*infra, error) {
	in := &infra{}

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    true,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	in.shutdownTracer = shutdownTracer

	in.pg, err = postgres.New(cfg.PgURL, postgres.MaxPoolSize(cfg.PgPoolMax))
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := ApplyMigrations(cfg.PgURL, migrations); err != nil {
		in.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	in.cache, err = redis.New(redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	in.conn = rabbitmq.NewConnectionManager(rabbitmq.ConnectionConfig{
		URL:               cfg.RabbitMQURL,
		ReconnectDelay:    cfg.RabbitMQReconnectDelay,
		ReconnectMaxDelay: cfg.RabbitMQReconnectMaxDelay,
	})
	topology := rabbitmq.NewTopology(cfg.RabbitMQExchange, cfg.ServiceName)
	in.conn.OnConnect(topology.Ensure)

	var observers []rabbitmq.Observer
	if len(cfg.KafkaBrokers) > 0 {
		in.mirror = kafka.NewMirror(cfg.KafkaBrokers, cfg.KafkaMirrorTopic)
		observers = append(observers, in.mirror)
		slog.InfoContext(ctx, "Kafka mirror enabled",
			"brokers", cfg.KafkaBrokers,
			"topic", cfg.KafkaMirrorTopic)
	}

	in.publisher = rabbitmq.NewPublisher(in.conn, topology.Exchange(), observers...)
	in.consumers = rabbitmq.NewConsumerPool(in.conn, topology)

	in.health = health.NewRegistry(
		health.NewPostgresChecker(in.pg),
		health.NewRabbitMQChecker(in.conn),
	).AddOptional(health.NewRedisChecker(in.cache))
	if len(cfg.KafkaBrokers) > 0 {
		in.health.AddOptional(health.NewKafkaChecker(cfg.KafkaBrokers))
	}

	in.retry = messaging.DefaultRetryConfig()
	in.retry.MaxAttempts = cfg.HandlerRetryAttempts

	return in, nil
}

// Close releases everything newInfra opened. The broker connection is
// owned by serve and already closed by the time this runs.
func (in *infra) Close() {
	var errs []error
	if in.publisher != nil {
		errs = append(errs, in.publisher.Close())
	}
	if in.mirror != nil {
		errs = append(errs, in.mirror.Close())
	}
	if in.cache != nil {
		errs = append(errs, in.cache.Close())
	}
	if in.pg != nil {
		in.pg.Close()
	}
	if in.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		errs = append(errs, in.shutdownTracer(ctx))
		cancel()
	}

	if err := errors.Join(errs...); err != nil {
		slog.Error("Teardown finished with errors", slog.Any("error", err))
	}
}
