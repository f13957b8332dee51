package order_repo

import (
	"context"
	"testing"
	"time"

	"ProductOrderSaga/internal/domain/order"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*repo, pgxmock.PgxPoolIface) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &repo{db: mock, builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}, mock
}

func TestCreateOrder(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Now()

	mock.ExpectQuery(`INSERT INTO orders \(product_id,quantity,total_price,status\) VALUES \(\$1,\$2,\$3,\$4\) RETURNING id`).
		WithArgs(int64(7), int64(3), 29.97, "waiting").
		WillReturnRows(mock.NewRows(orderColumns).
			AddRow(int64(1), int64(7), int64(3), 29.97, "waiting", ts, ts))

	o, err := repo.Create(context.Background(), order.NewOrder{
		ProductID:  7,
		Quantity:   3,
		TotalPrice: 29.97,
		Status:     order.StatusWaiting,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), o.ID)
	assert.Equal(t, order.StatusWaiting, o.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	ts := time.Now()

	t.Run("should return updated order", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`UPDATE orders SET status = \$1, updated_at = NOW\(\) WHERE id = \$2 RETURNING`).
			WithArgs("done", int64(1)).
			WillReturnRows(mock.NewRows(orderColumns).
				AddRow(int64(1), int64(7), int64(3), 29.97, "done", ts, ts))

		o, err := repo.UpdateStatus(ctx, 1, order.StatusDone)

		require.NoError(t, err)
		assert.Equal(t, order.StatusDone, o.Status)
		assert.Equal(t, int64(7), o.ProductID)
	})

	t.Run("should map no rows to ErrNotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`UPDATE orders`).
			WithArgs("done", int64(404)).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.UpdateStatus(ctx, 404, order.StatusDone)

		assert.ErrorIs(t, err, order.ErrNotFound)
	})
}

func TestFindByProductID(t *testing.T) {
	ctx := context.Background()
	ts := time.Now()

	t.Run("should return orders sorted by id", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT id, product_id, quantity, total_price, status, created_at, updated_at FROM orders WHERE product_id = \$1 ORDER BY id`).
			WithArgs(int64(7)).
			WillReturnRows(mock.NewRows(orderColumns).
				AddRow(int64(1), int64(7), int64(3), 29.97, "done", ts, ts).
				AddRow(int64(2), int64(7), int64(1), 9.99, "waiting", ts, ts))

		orders, err := repo.FindByProductID(ctx, 7)

		require.NoError(t, err)
		require.Len(t, orders, 2)
		assert.Equal(t, int64(1), orders[0].ID)
		assert.Equal(t, order.StatusWaiting, orders[1].Status)
	})

	t.Run("should return empty slice when none", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`FROM orders WHERE product_id = \$1`).
			WithArgs(int64(8)).
			WillReturnRows(mock.NewRows(orderColumns))

		orders, err := repo.FindByProductID(ctx, 8)

		require.NoError(t, err)
		assert.NotNil(t, orders)
		assert.Empty(t, orders)
	})

	t.Run("should reject unknown status", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`FROM orders`).
			WillReturnRows(mock.NewRows(orderColumns).
				AddRow(int64(1), int64(7), int64(3), 29.97, "shipped", ts, ts))

		_, err := repo.FindByProductID(ctx, 7)

		assert.ErrorIs(t, err, order.ErrInvalidStatus)
	})
}
