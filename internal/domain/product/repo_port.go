package product

import "context"

//go:generate mockgen -source repo_port.go -destination mock_repo_port.go -package product

type ProductRepo interface {
	FindByID(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, req CreateProductRequest) (Product, error)
	// DecrementFloored atomically sets qty = max(qty - amount, 0) and returns
	// the updated row, or ErrNotFound.
	DecrementFloored(ctx context.Context, id, amount int64) (Product, error)
}
