package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ProductOrderSaga/internal/cache"
	"ProductOrderSaga/internal/events"
	"ProductOrderSaga/internal/messaging"
)

const cacheEntity = "product"

func CacheKey(id int64) string {
	return cache.Key(cacheEntity, id)
}

type ProductService struct {
	repo      ProductRepo
	publisher messaging.Publisher
	cache     *cache.Store[Product]
}

func NewProductService(repo ProductRepo, publisher messaging.Publisher, backend cache.Backend, cacheTTL time.Duration) *ProductService {
	store := cache.NewStore[Product](backend, cacheEntity,
		cache.WithTTL(cacheTTL),
		cache.WithNotFound(func(err error) bool { return errors.Is(err, ErrNotFound) }),
	)
	return &ProductService{repo: repo, publisher: publisher, cache: store}
}

// GetByID reads through the cache.
func (s *ProductService) GetByID(ctx context.Context, id int64) (Product, error) {
	p, err := s.cache.GetOrLoad(ctx, CacheKey(id), s.loader(id))
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (Product, error) {
	if err := req.Validate(); err != nil {
		return Product{}, err
	}

	p, err := s.repo.Create(ctx, req)
	if err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.cache.Set(ctx, CacheKey(p.ID), p, 0)

	event := events.ProductCreated{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Qty:       p.Qty,
		CreatedAt: p.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event.RoutingKey(), event, ""); err != nil {
		slog.WarnContext(ctx, "Product created but event not published",
			"product_id", p.ID,
			slog.Any("error", err))
	}

	slog.InfoContext(ctx, "Product created", "product_id", p.ID)
	return p, nil
}

// ReduceQty decrements stock atomically in the store, never below zero.
func (s *ProductService) ReduceQty(ctx context.Context, id, amount int64) (Product, error) {
	if amount <= 0 {
		return Product{}, ErrInvalidQuantity
	}

	p, err := s.repo.DecrementFloored(ctx, id, amount)
	if err != nil {
		return Product{}, fmt.Errorf("reduce qty of product %d: %w", id, err)
	}
	return p, nil
}

// RefreshCache re-reads the product in the background and rewrites (or
// drops) its cache entry.
func (s *ProductService) RefreshCache(ctx context.Context, id int64) {
	s.cache.RefreshAsync(ctx, CacheKey(id), s.loader(id))
}

// Wait blocks until background cache refreshes have finished.
func (s *ProductService) Wait() {
	s.cache.Wait()
}

func (s *ProductService) loader(id int64) cache.Loader[Product] {
	return func(ctx context.Context) (Product, error) {
		return s.repo.FindByID(ctx, id)
	}
}
