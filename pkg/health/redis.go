package health

import "context"

// RedisChecker reports the cache as down when PING fails.
// The services keep serving from Postgres while it is down, so this checker
// is informational and is registered as non-critical.
type RedisChecker struct {
	client Pinger
}

func NewRedisChecker(client Pinger) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string {
	return "redis"
}

func (c *RedisChecker) Check(ctx context.Context) Result {
	return FromError(c.client.Ping(ctx))
}
