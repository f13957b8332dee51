package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Mount registers Kubernetes-style probes on the engine.
func Mount(engine gin.IRoutes, registry *Registry) {
	engine.GET("/health/live", LivenessHandler())
	engine.GET("/health/ready", ReadinessHandler(registry, DefaultTimeout))
}

// LivenessHandler always returns 200 OK while the process is running.
// Broker and cache outages must not restart the pod, so nothing is checked here.
func LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": StatusUp})
	}
}

// ReadinessHandler returns 200 OK if all required checks pass, 503 otherwise.
func ReadinessHandler(registry *Registry, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		response := registry.CheckAll(ctx)

		status := http.StatusOK
		if response.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, response)
	}
}
