package saga

import (
	"context"

	"ProductOrderSaga/internal/domain/product"
	"ProductOrderSaga/internal/events"
)

//go:generate mockgen -source ports.go -destination mock_ports.go -package saga

// Inventory is the product-service side of the saga.
type Inventory interface {
	ReduceQty(ctx context.Context, productID, amount int64) (product.Product, error)
	RefreshCache(ctx context.Context, productID int64)
}

// OrderStatusUpdater is the order-service side of the saga.
type OrderStatusUpdater interface {
	ApplyStatusUpdate(ctx context.Context, ev events.OrderUpdated) error
}
