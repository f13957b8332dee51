package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"ProductOrderSaga/config"
	"ProductOrderSaga/internal/controller/rest"
	"ProductOrderSaga/internal/controller/rest/handlers"
	"ProductOrderSaga/internal/domain/order"
	"ProductOrderSaga/internal/events"
	"ProductOrderSaga/internal/external/productclient"
	"ProductOrderSaga/internal/external/rabbitmq"
	"ProductOrderSaga/internal/messaging"
	order_repo "ProductOrderSaga/internal/repo/order"
	"ProductOrderSaga/internal/saga"
	"ProductOrderSaga/pkg/logger"
)

// RunOrder bootstraps the order service: order creation over REST and the
// listener that completes orders once stock is reserved.
func RunOrder(cfg config.Config) error {
	logger.Setup(logger.Options{
		Level:   cfg.LogLevel,
		Console: cfg.LogFormat == "console",
		Service: cfg.ServiceName,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	in, err := newInfra(ctx, cfg, OrderMigrations)
	if err != nil {
		return fmt.Errorf("order - Run - newInfra: %w", err)
	}
	defer in.Close()

	products := productclient.New(productclient.Config{
		BaseURL: cfg.ProductServiceURL,
		Timeout: cfg.HTTPProductClientTimeout,
	})
	defer products.Close()

	httpPublisher := messaging.NewDetached(in.publisher, 0)

	orderRepo := order_repo.NewPgOrderRepo(in.pg)
	orderService := order.NewOrderService(orderRepo, products, httpPublisher, in.cache, cfg.CacheTTL)

	listener := saga.NewOrderStatusListener(orderService)

	engine := NewGinEngine()
	rest.NewOrderRouter(handlers.NewOrderHandler(orderService)).SetUp(engine)
	mountOps(engine, in.health)

	subs := []rabbitmq.Subscription{
		{
			RoutingKey:        events.RoutingKeyOrderUpdated,
			Workers:           cfg.ConsumerWorkers,
			PrefetchPerWorker: cfg.ConsumerPrefetch,
			Handler:           messaging.WithRetry(listener.HandleOrderUpdated, in.retry),
		},
	}

	return serve(ctx, cfg, engine, in, subs, httpPublisher.Wait, orderService.Wait)
}
