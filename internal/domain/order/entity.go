package order

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product service unavailable")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrInvalidStatus      = errors.New("invalid order status")
)

type Order struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"productId"`
	Quantity   int64     `json:"quantity"`
	TotalPrice float64   `json:"totalPrice"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Status string

const (
	StatusWaiting Status = "waiting"
	StatusDone    Status = "done"
)

func NewStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusWaiting, StatusDone:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Product is the order service's view of a product owned by the product
// service.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int64   `json:"qty"`
}

type CreateOrderRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

func (r CreateOrderRequest) Validate() error {
	if r.ProductID <= 0 {
		return fmt.Errorf("%w: productId is required", ErrInvalidOrder)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	return nil
}

// NewOrder is what the repository persists.
type NewOrder struct {
	ProductID  int64
	Quantity   int64
	TotalPrice float64
	Status     Status
}
