package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"ProductOrderSaga/config"
	"ProductOrderSaga/internal/controller/rest"
	"ProductOrderSaga/internal/controller/rest/handlers"
	"ProductOrderSaga/internal/domain/product"
	"ProductOrderSaga/internal/events"
	"ProductOrderSaga/internal/external/rabbitmq"
	"ProductOrderSaga/internal/messaging"
	product_repo "ProductOrderSaga/internal/repo/product"
	"ProductOrderSaga/internal/saga"
	"ProductOrderSaga/pkg/logger"
)

// RunProduct bootstraps the product service: the REST API over products
// and the inventory side of the order saga.
func RunProduct(cfg config.Config) error {
	logger.Setup(logger.Options{
		Level:   cfg.LogLevel,
		Console: cfg.LogFormat == "console",
		Service: cfg.ServiceName,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	in, err := newInfra(ctx, cfg, ProductMigrations)
	if err != nil {
		return fmt.Errorf("product - Run - newInfra: %w", err)
	}
	defer in.Close()

	// HTTP writes only enqueue; a broker outage must not fail them.
	httpPublisher := messaging.NewDetached(in.publisher, 0)

	productRepo := product_repo.NewPgProductRepo(in.pg)
	productService := product.NewProductService(productRepo, httpPublisher, in.cache, cfg.CacheTTL)

	coordinator := saga.NewInventoryCoordinator(productService, in.publisher)

	engine := NewGinEngine()
	rest.NewProductRouter(handlers.NewProductHandler(productService)).SetUp(engine)
	mountOps(engine, in.health)

	subs := []rabbitmq.Subscription{
		{
			RoutingKey:        events.RoutingKeyOrderCreated,
			Workers:           cfg.ConsumerWorkers,
			PrefetchPerWorker: cfg.ConsumerPrefetch,
			Handler:           messaging.WithRetry(coordinator.HandleOrderCreated, in.retry),
		},
	}

	return serve(ctx, cfg, engine, in, subs, httpPublisher.Wait, productService.Wait)
}
