package product_repo

import (
	"context"
	"fmt"

	"ProductOrderSaga/internal/domain/product"
	"ProductOrderSaga/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var productColumns = []string{"id", "name", "price", "qty", "created_at", "updated_at"}

func NewPgProductRepo(pg *postgres.Postgres) product.ProductRepo {
	return &repo{db: pg.Pool, builder: pg.Builder}
}

type repo struct {
	db      postgres.Executor
	builder squirrel.StatementBuilderType
}

func (r *repo) FindByID(ctx context.Context, id int64) (product.Product, error) {
	query, args, err := r.builder.Select(productColumns...).
		From("products").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("build select query: %w", err)
	}

	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if postgres.IsNoRows(err) {
		return product.Product{}, product.ErrNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("find product %d: %w", id, err)
	}
	return p, nil
}

func (r *repo) Create(ctx context.Context, req product.CreateProductRequest) (product.Product, error) {
	query, args, err := r.builder.Insert("products").
		Columns("name", "price", "qty").
		Values(req.Name, req.Price, req.Qty).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("build insert query: %w", err)
	}

	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return product.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// DecrementFloored runs as a single UPDATE so concurrent decrements never
// drive qty below zero.
func (r *repo) DecrementFloored(ctx context.Context, id, amount int64) (product.Product, error) {
	query, args, err := r.builder.Update("products").
		Set("qty", squirrel.Expr("GREATEST(qty - ?, 0)", amount)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Suffix(returning()).
		ToSql()
	if err != nil {
		return product.Product{}, fmt.Errorf("build decrement query: %w", err)
	}

	p, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if postgres.IsNoRows(err) {
		return product.Product{}, product.ErrNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("decrement product %d: %w", id, err)
	}
	return p, nil
}

func returning() string {
	return "RETURNING id, name, price, qty, created_at, updated_at"
}

func scanProduct(row pgx.Row) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Qty, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
