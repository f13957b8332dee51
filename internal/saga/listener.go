package saga

import (
	"context"
	"errors"
	"log/slog"

	"ProductOrderSaga/internal/domain/order"
	"ProductOrderSaga/internal/events"
	"ProductOrderSaga/internal/messaging"
)

// OrderStatusListener consumes order.updated in the order service.
type OrderStatusListener struct {
	orders OrderStatusUpdater
}

func NewOrderStatusListener(orders OrderStatusUpdater) *OrderStatusListener {
	return &OrderStatusListener{orders: orders}
}

func (l *OrderStatusListener) HandleOrderUpdated(ctx context.Context, env messaging.Envelope) messaging.Result {
	ev, err := events.Decode(events.RoutingKeyOrderUpdated, env.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Malformed order.updated",
			"delivery_tag", env.DeliveryTag,
			slog.Any("error", err))
		return messaging.DeadLetter
	}
	updated := ev.(events.OrderUpdated)

	if err := updated.Validate(); err != nil {
		slog.WarnContext(ctx, "Invalid order.updated dropped",
			"order_id", updated.OrderID,
			slog.Any("error", err))
		return messaging.Ack
	}

	err = l.orders.ApplyStatusUpdate(ctx, updated)
	switch {
	case err == nil:
		return messaging.Ack
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrInvalidStatus):
		slog.ErrorContext(ctx, "Order status update rejected",
			"order_id", updated.OrderID,
			"status", updated.Status,
			slog.Any("error", err))
		return messaging.DeadLetter
	default:
		slog.WarnContext(ctx, "Failed to apply order status",
			"order_id", updated.OrderID,
			slog.Any("error", err))
		return messaging.Requeue
	}
}
