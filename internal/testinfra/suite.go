//go:build integration
// +build integration

package testinfra

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
)

type TestSuite struct {
	Postgres *PostgresContainer
	RabbitMQ *RabbitMQContainer
	Redis    *RedisContainer
	Kafka    *KafkaContainer
}

type SuiteOptions struct {
	WithRabbitMQ bool
	WithRedis    bool
	WithKafka    bool
	Migrations   []fs.FS
}

// NewTestSuite creates all infrastructure for tests
// Containers are started in parallel for speed
func NewTestSuite(ctx context.Context, opts SuiteOptions) (*TestSuite, error) {
	suite := &TestSuite{}
	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// PostgreSQL (always needed)
	wg.Add(1)
	go func() {
		defer wg.Done()
		pg, err := NewPostgres(ctx, opts.Migrations...)
		if err != nil {
			errCh <- fmt.Errorf("postgres: %w", err)
			return
		}
		suite.Postgres = pg
	}()

	if opts.WithRabbitMQ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := NewRabbitMQ(ctx)
			if err != nil {
				errCh <- fmt.Errorf("rabbitmq: %w", err)
				return
			}
			suite.RabbitMQ = r
		}()
	}

	if opts.WithRedis {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := NewRedis(ctx)
			if err != nil {
				errCh <- fmt.Errorf("redis: %w", err)
				return
			}
			suite.Redis = r
		}()
	}

	if opts.WithKafka {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k, err := NewKafka(ctx)
			if err != nil {
				errCh <- fmt.Errorf("kafka: %w", err)
				return
			}
			suite.Kafka = k
		}()
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		suite.Cleanup(ctx) // cleanup partially started containers
		return nil, fmt.Errorf("failed to start containers: %v", errs)
	}

	return suite, nil
}

func (s *TestSuite) Cleanup(ctx context.Context) {
	if s.Kafka != nil {
		s.Kafka.Cleanup(ctx)
	}
	if s.Redis != nil {
		s.Redis.Cleanup(ctx)
	}
	if s.RabbitMQ != nil {
		s.RabbitMQ.Cleanup(ctx)
	}
	if s.Postgres != nil {
		s.Postgres.Cleanup(ctx)
	}
}
