package health

import "context"

// Pinger is satisfied by *pgxpool.Pool and *postgres.Postgres.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PostgresChecker checks PostgreSQL connectivity.
type PostgresChecker struct {
	db Pinger
}

// NewPostgresChecker creates a new PostgreSQL health checker.
func NewPostgresChecker(db Pinger) *PostgresChecker {
	return &PostgresChecker{db: db}
}

// Name returns "postgres".
func (c *PostgresChecker) Name() string {
	return "postgres"
}

// Check pings the PostgreSQL database.
func (c *PostgresChecker) Check(ctx context.Context) Result {
	return FromError(c.db.Ping(ctx))
}
