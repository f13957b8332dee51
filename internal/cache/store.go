// Package cache implements cache-aside reads over a byte-oriented backend.
// The cache is never the source of truth: every backend failure is logged
// and degraded to a miss or a no-op.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ProductOrderSaga/pkg/metrics"
)

const (
	DefaultTTL = 600 * time.Second

	refreshTimeout = 10 * time.Second
)

type Backend interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Loader reads the authoritative value.
type Loader[T any] func(ctx context.Context) (T, error)

// Key builds the canonical "{entity}:{id}" key.
func Key(entity string, id int64) string {
	return fmt.Sprintf("%s:%d", entity, id)
}

type Option func(*options)

type options struct {
	ttl        time.Duration
	isNotFound func(error) bool
}

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithNotFound lets Refresh tell "entity is gone" from a failed load.
func WithNotFound(fn func(error) bool) Option {
	return func(o *options) { o.isNotFound = fn }
}

type Store[T any] struct {
	backend Backend
	name    string
	opts    options

	wg sync.WaitGroup

	mu sync.Mutex
	// pending holds keys with a refresh in flight; a non-nil loader means
	// another refresh was requested meanwhile and must run after it.
	pending map[string]Loader[T]
}

// NewStore creates a store; name labels its logs and metrics.
func NewStore[T any](backend Backend, name string, opts ...Option) *Store[T] {
	o := options{
		ttl:        DefaultTTL,
		isNotFound: func(error) bool { return false },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		backend: backend,
		name:    name,
		opts:    o,
		pending: make(map[string]Loader[T]),
	}
}

// Get returns the cached value. Any failure is reported as a miss.
func (s *Store[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	raw, ok, err := s.backend.GetBytes(ctx, key)
	if err != nil {
		s.degraded(ctx, "get", key, err)
		return zero, false
	}
	if !ok {
		metrics.CacheRequests.WithLabelValues(s.name, "miss").Inc()
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.degraded(ctx, "decode", key, err)
		return zero, false
	}
	metrics.CacheRequests.WithLabelValues(s.name, "hit").Inc()
	return v, true
}

// Set writes v with ttl, falling back to the store TTL when ttl <= 0.
func (s *Store[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.opts.ttl
	}

	raw, err := json.Marshal(v)
	if err != nil {
		s.degraded(ctx, "encode", key, err)
		return
	}
	if err := s.backend.SetBytes(ctx, key, raw, ttl); err != nil {
		s.degraded(ctx, "set", key, err)
		return
	}
	metrics.CacheRequests.WithLabelValues(s.name, "set").Inc()
}

func (s *Store[T]) Del(ctx context.Context, key string) {
	if err := s.backend.Del(ctx, key); err != nil {
		s.degraded(ctx, "del", key, err)
		return
	}
	metrics.CacheRequests.WithLabelValues(s.name, "delete").Inc()
}

// GetOrLoad is a read-through: on a miss it loads and caches the value.
// Loader errors are returned unchanged.
func (s *Store[T]) GetOrLoad(ctx context.Context, key string, load Loader[T]) (T, error) {
	if v, ok := s.Get(ctx, key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Set(ctx, key, v, s.opts.ttl)
	return v, nil
}

// Refresh re-reads the value and overwrites the entry, or deletes it when
// the loader reports the entity no longer exists.
func (s *Store[T]) Refresh(ctx context.Context, key string, load Loader[T]) error {
	v, err := load(ctx)
	if err != nil {
		if s.opts.isNotFound(err) {
			s.Del(ctx, key)
			return nil
		}
		return fmt.Errorf("refresh %s: %w", key, err)
	}
	s.Set(ctx, key, v, s.opts.ttl)
	return nil
}

// RefreshAsync runs Refresh in the background, detached from the caller's
// cancellation. Refreshes of one key never overlap: requests arriving while
// one is in flight collapse into a single rerun, so the last write always
// follows the last request. Failures are only logged.
func (s *Store[T]) RefreshAsync(ctx context.Context, key string, load Loader[T]) {
	s.mu.Lock()
	if _, running := s.pending[key]; running {
		s.pending[key] = load
		s.mu.Unlock()
		return
	}
	s.pending[key] = nil
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		for load != nil {
			s.refreshDetached(bg, key, load)

			s.mu.Lock()
			load = s.pending[key]
			if load == nil {
				delete(s.pending, key)
			} else {
				s.pending[key] = nil
			}
			s.mu.Unlock()
		}
	}()
}

func (s *Store[T]) refreshDetached(ctx context.Context, key string, load Loader[T]) {
	rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	if err := s.Refresh(rctx, key, load); err != nil {
		slog.WarnContext(rctx, "Cache refresh failed",
			"cache", s.name,
			"key", key,
			slog.Any("error", err))
	}
}

// Wait blocks until pending RefreshAsync calls are done.
func (s *Store[T]) Wait() {
	s.wg.Wait()
}

func (s *Store[T]) degraded(ctx context.Context, op, key string, err error) {
	metrics.CacheRequests.WithLabelValues(s.name, "error").Inc()
	slog.WarnContext(ctx, "Cache operation failed",
		"cache", s.name,
		"op", op,
		"key", key,
		slog.Any("error", err))
}
