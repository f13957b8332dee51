package app

import (
	"ProductOrderSaga/pkg/health"
	"ProductOrderSaga/pkg/logger"
	"ProductOrderSaga/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewGinEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		logger.CorrelationMiddleware(),
		metrics.GinMiddleware(),
		logger.GinRequestLogger(),
	)
	return engine
}

// mountOps adds probes and the Prometheus scrape endpoint.
func mountOps(engine *gin.Engine, registry *health.Registry) {
	health.Mount(engine, registry)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}
