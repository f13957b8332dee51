// Package events defines the closed set of events exchanged over the bus.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	RoutingKeyOrderCreated   = "order.created"
	RoutingKeyOrderUpdated   = "order.updated"
	RoutingKeyProductCreated = "product.created"
)

const (
	OrderStatusWaiting = "waiting"
	OrderStatusDone    = "done"
)

var ErrInvalidEvent = errors.New("invalid event")

// Event is implemented by every variant below.
type Event interface {
	RoutingKey() string
	Validate() error
}

type OrderCreated struct {
	OrderID   int64     `json:"orderId"`
	ProductID int64     `json:"productId"`
	Quantity  int64     `json:"quantity"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	RequestID string    `json:"requestId,omitempty"`
}

func (OrderCreated) RoutingKey() string { return RoutingKeyOrderCreated }

func (e OrderCreated) Validate() error {
	if e.ProductID <= 0 {
		return fmt.Errorf("%w: productId is required", ErrInvalidEvent)
	}
	if e.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidEvent)
	}
	return nil
}

type OrderUpdated struct {
	OrderID   int64     `json:"orderId"`
	ProductID int64     `json:"productId"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt"`
	RequestID string    `json:"requestId,omitempty"`
}

func (OrderUpdated) RoutingKey() string { return RoutingKeyOrderUpdated }

func (e OrderUpdated) Validate() error {
	if e.OrderID <= 0 {
		return fmt.Errorf("%w: orderId is required", ErrInvalidEvent)
	}
	if e.Status == "" {
		return fmt.Errorf("%w: status is required", ErrInvalidEvent)
	}
	return nil
}

type ProductCreated struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Qty       int64     `json:"qty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (ProductCreated) RoutingKey() string { return RoutingKeyProductCreated }

func (e ProductCreated) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidEvent)
	}
	return nil
}

// DeserializationError reports a body that is not valid JSON for the
// variant selected by its routing key.
type DeserializationError struct {
	RoutingKey string
	Err        error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("deserialize %s: %v", e.RoutingKey, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

var ErrUnknownRoutingKey = errors.New("unknown routing key")

// Decode parses body into the variant registered for routingKey.
// Structural validity is checked separately with Validate.
func Decode(routingKey string, body []byte) (Event, error) {
	switch routingKey {
	case RoutingKeyOrderCreated:
		return decodeInto[OrderCreated](routingKey, body)
	case RoutingKeyOrderUpdated:
		return decodeInto[OrderUpdated](routingKey, body)
	case RoutingKeyProductCreated:
		return decodeInto[ProductCreated](routingKey, body)
	default:
		return nil, &DeserializationError{RoutingKey: routingKey, Err: ErrUnknownRoutingKey}
	}
}

func decodeInto[T Event](routingKey string, body []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, &DeserializationError{RoutingKey: routingKey, Err: err}
	}
	return ev, nil
}
