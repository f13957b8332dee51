package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ProductOrderSaga/config"
	"ProductOrderSaga/internal/external/rabbitmq"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// serve runs the broker connection, the consumers and the HTTP server
// until ctx is cancelled or one of them fails. On the way down it stops
// accepting requests, lets consumers finish in-flight messages, runs the
// drain hooks and only then drops the broker connection.
func serve(ctx context.Context, cfg config.Config, engine *gin.Engine, in *infra, subs []rabbitmq.Subscription, drains ...func()) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	connCtx, stopConn := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConn()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return in.conn.Run(connCtx)
	})

	workers := StartWorkers(gctx, in.consumers, subs)
	g.Go(workers.Wait)

	g.Go(func() error {
		slog.Info("HTTP server started", "service", cfg.ServiceName, "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "service", cfg.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", slog.Any("error", err))
		}

		drainWorkers(workers.Wait, shutdownTimeout, func() { _ = in.conn.Close() })
		for _, drain := range drains {
			drain()
		}
		if err := in.publisher.Close(); err != nil {
			slog.Warn("Publisher close error", slog.Any("error", err))
		}
		stopConn()
		return nil
	})

	err := g.Wait()
	slog.Info("Service stopped", "service", cfg.ServiceName)
	return err
}

// drainWorkers waits for in-flight handlers. A handler publishing while the
// broker is down would wait for it forever, so after timeout abort closes
// the connection, which fails those publishes, and the wait resumes.
func drainWorkers(wait func() error, timeout time.Duration, abort func()) {
	done := make(chan struct{})
	go func() {
		_ = wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return
	case <-timer.C:
		slog.Warn("Consumers still busy, closing broker connection", "timeout", timeout.String())
		abort()
	}
	<-done
}
