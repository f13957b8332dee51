//go:build integration
// +build integration

package testinfra

import (
	"context"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"ProductOrderSaga/internal/app"
	"ProductOrderSaga/pkg/postgres"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type PostgresContainer struct {
	Container testcontainers.Container
	Pool      *postgres.Postgres
	DSN       string
}

func postgresDSN(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://postgres:secret@%s:%s/saga_test?sslmode=disable", host, port.Port())
}

// NewPostgres starts Postgres and applies every given migration set.
func NewPostgres(ctx context.Context, migrations ...fs.FS) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image: "postgres:17-alpine",
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "secret",
			"POSTGRES_DB":       "saga_test",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForSQL("5432/tcp", "postgres", postgresDSN).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432/tcp")
	dsn := postgresDSN(host, port)

	pool, err := postgres.New(dsn, postgres.MaxPoolSize(10))
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	for _, m := range migrations {
		if err := app.ApplyMigrations(dsn, m); err != nil {
			pool.Close()
			container.Terminate(ctx)
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	return &PostgresContainer{
		Container: container,
		Pool:      pool,
		DSN:       dsn,
	}, nil
}

func (c *PostgresContainer) Cleanup(ctx context.Context) {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Container != nil {
		c.Container.Terminate(ctx)
	}
}

// Truncate clears the given tables and resets their identities.
func (c *PostgresContainer) Truncate(ctx context.Context, tables ...string) error {
	_, err := c.Pool.Pool.Exec(ctx,
		"TRUNCATE TABLE "+strings.Join(tables, ", ")+" RESTART IDENTITY CASCADE")
	return err
}
