package order_repo

import (
	"context"
	"fmt"

	"ProductOrderSaga/internal/domain/order"
	"ProductOrderSaga/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{"id", "product_id", "quantity", "total_price", "status", "created_at", "updated_at"}

const returningOrder = "RETURNING id, product_id, quantity, total_price, status, created_at, updated_at"

func NewPgOrderRepo(pg *postgres.Postgres) order.OrderRepo {
	return &repo{db: pg.Pool, builder: pg.Builder}
}

type repo struct {
	db      postgres.Executor
	builder squirrel.StatementBuilderType
}

func (r *repo) Create(ctx context.Context, o order.NewOrder) (order.Order, error) {
	query, args, err := r.builder.Insert("orders").
		Columns("product_id", "quantity", "total_price", "status").
		Values(o.ProductID, o.Quantity, o.TotalPrice, string(o.Status)).
		Suffix(returningOrder).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("build insert query: %w", err)
	}

	created, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	return created, nil
}

func (r *repo) UpdateStatus(ctx context.Context, id int64, status order.Status) (order.Order, error) {
	query, args, err := r.builder.Update("orders").
		Set("status", string(status)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Suffix(returningOrder).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("build update query: %w", err)
	}

	updated, err := scanOrder(r.db.QueryRow(ctx, query, args...))
	if postgres.IsNoRows(err) {
		return order.Order{}, order.ErrNotFound
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("update order status: %w", err)
	}
	return updated, nil
}

func (r *repo) FindByProductID(ctx context.Context, productID int64) ([]order.Order, error) {
	query, args, err := r.builder.Select(orderColumns...).
		From("orders").
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	return parseOrderRows(rows)
}

func scanOrder(row pgx.Row) (order.Order, error) {
	var o order.Order
	var rawStatus string
	if err := row.Scan(&o.ID, &o.ProductID, &o.Quantity, &o.TotalPrice, &rawStatus, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return order.Order{}, err
	}

	status, err := order.NewStatus(rawStatus)
	if err != nil {
		return order.Order{}, fmt.Errorf("invalid status in database: %w", err)
	}
	o.Status = status
	return o, nil
}

func parseOrderRows(rows pgx.Rows) ([]order.Order, error) {
	orders := []order.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}
