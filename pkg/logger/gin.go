package logger

import (
	"log/slog"
	"time"

	"ProductOrderSaga/pkg/correlation"

	"github.com/gin-gonic/gin"
)

// CorrelationMiddleware extracts X-Request-ID (or the legacy X-Correlation-ID)
// from the request header or generates a new one.
// It stores the ID in the request context and adds it to the response header.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(correlation.HeaderName)
		if reqID == "" {
			reqID = c.GetHeader(correlation.LegacyHeaderName)
		}
		if reqID == "" {
			reqID = correlation.NewID()
		}

		ctx := correlation.WithID(c.Request.Context(), reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Header(correlation.HeaderName, reqID)

		c.Next()
	}
}

// GinRequestLogger logs one record per request after the handler chain ran.
func GinRequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		slog.Log(c.Request.Context(), level, "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds())
	}
}
