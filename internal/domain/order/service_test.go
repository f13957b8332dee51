package order

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ProductOrderSaga/internal/events"
	"ProductOrderSaga/internal/messaging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (b *memBackend) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *memBackend) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	b.ttls[key] = ttl
	return nil
}

func (b *memBackend) Del(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *memBackend) orders(t *testing.T, key string) []Order {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.data[key]
	require.True(t, ok, "no cache entry for %s", key)
	var out []Order
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type fixture struct {
	service   *OrderService
	repo      *MockOrderRepo
	products  *MockProductReader
	publisher *messaging.MockPublisher
	backend   *memBackend
}

func orderService(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := fixture{
		repo:      NewMockOrderRepo(ctrl),
		products:  NewMockProductReader(ctrl),
		publisher: messaging.NewMockPublisher(ctrl),
		backend:   newMemBackend(),
	}
	f.service = NewOrderService(f.repo, f.products, f.publisher, f.backend, 600*time.Second)
	return f
}

func TestOrderService_CreateOrder(t *testing.T) {
	createdAt := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	stored := Order{ID: 10, ProductID: 42, Quantity: 3, TotalPrice: 75, Status: StatusWaiting, CreatedAt: createdAt}

	t.Run("should price, store, refresh and publish", func(t *testing.T) {
		// given
		f := orderService(t)
		ctx := context.Background()

		f.products.EXPECT().GetProduct(gomock.Any(), int64(42)).Return(Product{ID: 42, Price: 25, Qty: 10}, nil)
		f.repo.EXPECT().Create(gomock.Any(), NewOrder{ProductID: 42, Quantity: 3, TotalPrice: 75, Status: StatusWaiting}).Return(stored, nil)
		f.repo.EXPECT().FindByProductID(gomock.Any(), int64(42)).Return([]Order{stored}, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), events.RoutingKeyOrderCreated, events.OrderCreated{
			OrderID:   10,
			ProductID: 42,
			Quantity:  3,
			Status:    events.OrderStatusWaiting,
			CreatedAt: createdAt,
		}, "").Return(nil)

		// when
		o, err := f.service.CreateOrder(ctx, CreateOrderRequest{ProductID: 42, Quantity: 3})
		f.service.Wait()

		// then
		require.NoError(t, err)
		assert.Equal(t, stored, o)
		assert.Equal(t, []Order{stored}, f.backend.orders(t, "orders:product:42"))
		assert.Equal(t, ProductCacheTTL, f.backend.ttls["product:42"])
	})

	t.Run("should use cached product on second order", func(t *testing.T) {
		f := orderService(t)
		ctx := context.Background()

		f.products.EXPECT().GetProduct(gomock.Any(), int64(42)).Return(Product{ID: 42, Price: 25}, nil).Times(1)
		f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(stored, nil).Times(2)
		f.repo.EXPECT().FindByProductID(gomock.Any(), int64(42)).Return([]Order{stored}, nil).AnyTimes()
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

		_, err := f.service.CreateOrder(ctx, CreateOrderRequest{ProductID: 42, Quantity: 3})
		require.NoError(t, err)
		_, err = f.service.CreateOrder(ctx, CreateOrderRequest{ProductID: 42, Quantity: 3})
		require.NoError(t, err)
		f.service.Wait()
	})

	t.Run("should fail when product does not exist", func(t *testing.T) {
		f := orderService(t)
		f.products.EXPECT().GetProduct(gomock.Any(), int64(99)).Return(Product{}, ErrProductNotFound)

		_, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{ProductID: 99, Quantity: 1})

		assert.ErrorIs(t, err, ErrProductNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("should keep order when publish fails", func(t *testing.T) {
		f := orderService(t)
		f.products.EXPECT().GetProduct(gomock.Any(), int64(42)).Return(Product{ID: 42, Price: 25}, nil)
		f.repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(stored, nil)
		f.repo.EXPECT().FindByProductID(gomock.Any(), int64(42)).Return([]Order{stored}, nil)
		f.publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

		o, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{ProductID: 42, Quantity: 3})
		f.service.Wait()

		require.NoError(t, err)
		assert.Equal(t, int64(10), o.ID)
	})

	t.Run("should reject invalid request", func(t *testing.T) {
		f := orderService(t)

		_, err := f.service.CreateOrder(context.Background(), CreateOrderRequest{ProductID: 42})

		assert.ErrorIs(t, err, ErrInvalidOrder)
	})
}

func TestOrderService_ApplyStatusUpdate(t *testing.T) {
	testCases := []struct {
		name          string
		event         events.OrderUpdated
		mock          func(f fixture)
		expectedError error
	}{
		{
			name:  "should mark order done and refresh list",
			event: events.OrderUpdated{OrderID: 10, ProductID: 42, Status: "done"},
			mock: func(f fixture) {
				updated := Order{ID: 10, ProductID: 42, Status: StatusDone}
				f.repo.EXPECT().UpdateStatus(gomock.Any(), int64(10), StatusDone).Return(updated, nil)
				f.repo.EXPECT().FindByProductID(gomock.Any(), int64(42)).Return([]Order{updated}, nil)
			},
		},
		{
			name:          "should reject unknown status",
			event:         events.OrderUpdated{OrderID: 10, Status: "shipped"},
			mock:          func(fixture) {},
			expectedError: ErrInvalidStatus,
		},
		{
			name:  "should report missing order",
			event: events.OrderUpdated{OrderID: 11, Status: "done"},
			mock: func(f fixture) {
				f.repo.EXPECT().UpdateStatus(gomock.Any(), int64(11), StatusDone).Return(Order{}, ErrNotFound)
			},
			expectedError: ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			f := orderService(t)
			tc.mock(f)

			// when
			err := f.service.ApplyStatusUpdate(context.Background(), tc.event)
			f.service.Wait()

			// then
			if tc.expectedError != nil {
				assert.ErrorIs(t, err, tc.expectedError)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOrderService_GetOrdersByProduct(t *testing.T) {
	t.Run("should read through cache", func(t *testing.T) {
		f := orderService(t)
		ctx := context.Background()
		f.repo.EXPECT().FindByProductID(ctx, int64(42)).Return(nil, nil).Times(1)

		first, err := f.service.GetOrdersByProduct(ctx, 42)
		require.NoError(t, err)
		second, err := f.service.GetOrdersByProduct(ctx, 42)
		require.NoError(t, err)

		assert.Equal(t, []Order{}, first)
		assert.Equal(t, []Order{}, second)
		assert.Equal(t, 600*time.Second, f.backend.ttls["orders:product:42"])
	})

	t.Run("should reject bad id", func(t *testing.T) {
		f := orderService(t)

		_, err := f.service.GetOrdersByProduct(context.Background(), 0)

		assert.ErrorIs(t, err, ErrInvalidOrder)
	})
}

func TestNewStatus(t *testing.T) {
	s, err := NewStatus("waiting")
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, s)

	_, err = NewStatus("")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
