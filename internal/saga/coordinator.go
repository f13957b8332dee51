// Package saga holds the event handlers that move an order from waiting
// to done across the product and order services.
package saga

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"ProductOrderSaga/internal/domain/product"
	"ProductOrderSaga/internal/events"
	"ProductOrderSaga/internal/messaging"
)

// InventoryCoordinator consumes order.created in the product service,
// reserves stock and answers with order.updated.
type InventoryCoordinator struct {
	inventory Inventory
	publisher messaging.Publisher
	now       func() time.Time
}

func NewInventoryCoordinator(inventory Inventory, publisher messaging.Publisher) *InventoryCoordinator {
	return &InventoryCoordinator{
		inventory: inventory,
		publisher: publisher,
		now:       time.Now,
	}
}

func (c *InventoryCoordinator) HandleOrderCreated(ctx context.Context, env messaging.Envelope) messaging.Result {
	ev, err := events.Decode(events.RoutingKeyOrderCreated, env.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Malformed order.created",
			"delivery_tag", env.DeliveryTag,
			slog.Any("error", err))
		return messaging.DeadLetter
	}
	created := ev.(events.OrderCreated)

	if err := created.Validate(); err != nil {
		slog.WarnContext(ctx, "Invalid order.created dropped",
			"order_id", created.OrderID,
			slog.Any("error", err))
		return messaging.Ack
	}

	p, err := c.inventory.ReduceQty(ctx, created.ProductID, created.Quantity)
	switch {
	case errors.Is(err, product.ErrNotFound):
		slog.ErrorContext(ctx, "Order references unknown product",
			"order_id", created.OrderID,
			"product_id", created.ProductID)
		return messaging.DeadLetter
	case err != nil:
		slog.WarnContext(ctx, "Failed to reduce product quantity",
			"order_id", created.OrderID,
			"product_id", created.ProductID,
			slog.Any("error", err))
		return messaging.Requeue
	}

	updated := events.OrderUpdated{
		OrderID:   created.OrderID,
		ProductID: created.ProductID,
		Status:    events.OrderStatusDone,
		UpdatedAt: c.now().UTC(),
		RequestID: env.RequestID,
	}
	// The decrement is committed; requeueing here would apply it twice.
	if err := c.publisher.Publish(ctx, updated.RoutingKey(), updated, env.RequestID); err != nil {
		slog.ErrorContext(ctx, "Stock reduced but order.updated not published",
			"order_id", created.OrderID,
			slog.Any("error", err))
	}

	c.inventory.RefreshCache(ctx, p.ID)

	slog.InfoContext(ctx, "Inventory reserved",
		"order_id", created.OrderID,
		"product_id", p.ID,
		"qty_left", p.Qty)
	return messaging.Ack
}
