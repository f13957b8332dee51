package order

import "context"

//go:generate mockgen -source repo_port.go -destination mock_repo_port.go -package order

type OrderRepo interface {
	Create(ctx context.Context, o NewOrder) (Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (Order, error)
	FindByProductID(ctx context.Context, productID int64) ([]Order, error)
}

// ProductReader fetches products from the product service.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (Product, error)
}
