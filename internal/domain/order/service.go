package order

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

const (
	productCacheEntity = "product"
	ordersCacheEntity  = "orders:product"

	// ProductCacheTTL is shorter than the product service's own TTL since
	// the order service only needs the price.
	ProductCacheTTL = 300 * time.Second
)

func ProductCacheKey(productID int64) string {
	return cache.Key(productCacheEntity, productID)
}

func OrdersCacheKey(productID int64) string {
	return cache.Key(ordersCacheEntity, productID)
}

type OrderService struct {
	repo      OrderRepo
	products  ProductReader
	publisher messaging.Publisher

	productCache *cache.Store[Product]
	ordersCache  *cache.Store[[]Order]
}

func NewOrderService(repo OrderRepo, products ProductReader, publisher messaging.Publisher, backend cache.Backend, ordersTTL time.Duration) *OrderService {
	return &OrderService{
		repo:         repo,
		products:     products,
		publisher:    publisher,
		productCache: cache.NewStore[Product](backend, "order_product", cache.WithTTL(ProductCacheTTL)),
		ordersCache:  cache.NewStore[[]Order](backend, "product_orders", cache.WithTTL(ordersTTL)),
	}
}

// CreateOrder prices the order from the product service, stores it as
// waiting and announces it with order.created.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (Order, error) {
	if err := req.Validate(); err != nil {
		return Order{}, err
	}

	product, err := s.productCache.GetOrLoad(ctx, ProductCacheKey(req.ProductID), func(ctx context.Context) (Product, error) {
		return s.products.GetProduct(ctx, req.ProductID)
	})
	if err != nil {
		return Order{}, fmt.Errorf("fetch product %d: %w", req.ProductID, err)
	}

	o, err := s.repo.Create(ctx, NewOrder{
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		TotalPrice: float64(req.Quantity) * product.Price,
		Status:     StatusWaiting,
	})
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	s.refreshOrders(ctx, o.ProductID)

	event := events.OrderCreated{
		OrderID:   o.ID,
		ProductID: o.ProductID,
		Quantity:  o.Quantity,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, event.RoutingKey(), event, ""); err != nil {
		slog.WarnContext(ctx, "Order created but event not published",
			"order_id", o.ID,
			slog.Any("error", err))
	}

	slog.InfoContext(ctx, "Order created",
		"order_id", o.ID,
		"product_id", o.ProductID,
		"quantity", o.Quantity)
	return o, nil
}

// ApplyStatusUpdate records the outcome reported by the product service.
func (s *OrderService) ApplyStatusUpdate(ctx context.Context, ev events.OrderUpdated) error {
	status, err := NewStatus(ev.Status)
	if err != nil {
		return err
	}

	o, err := s.repo.UpdateStatus(ctx, ev.OrderID, status)
	if err != nil {
		return fmt.Errorf("update order %d: %w", ev.OrderID, err)
	}

	s.refreshOrders(ctx, o.ProductID)

	slog.InfoContext(ctx, "Order status updated",
		"order_id", o.ID,
		"status", string(o.Status))
	return nil
}

func (s *OrderService) GetOrdersByProduct(ctx context.Context, productID int64) ([]Order, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: product id must be positive", ErrInvalidOrder)
	}

	orders, err := s.ordersCache.GetOrLoad(ctx, OrdersCacheKey(productID), s.ordersLoader(productID))
	if err != nil {
		return nil, fmt.Errorf("get orders of product %d: %w", productID, err)
	}
	return orders, nil
}

// Wait blocks until background cache refreshes have finished.
func (s *OrderService) Wait() {
	s.ordersCache.Wait()
}

func (s *OrderService) refreshOrders(ctx context.Context, productID int64) {
	s.ordersCache.RefreshAsync(ctx, OrdersCacheKey(productID), s.ordersLoader(productID))
}

func (s *OrderService) ordersLoader(productID int64) cache.Loader[[]Order] {
	return func(ctx context.Context) ([]Order, error) {
		orders, err := s.repo.FindByProductID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if orders == nil {
			orders = []Order{}
		}
		return orders, nil
	}
}

// IsNotFound reports whether err means the order or its product is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrProductNotFound)
}
