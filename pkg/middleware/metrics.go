package middleware

import (
	"time"

	"github.com/cobrify/stock-service/pkg/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsConfig holds metrics middleware configuration
type MetricsConfig struct {
	SkipPaths []string
}

// DefaultMetricsConfig skips the probe and scrape endpoints
func DefaultMetricsConfig() *MetricsConfig {
	return &MetricsConfig{SkipPaths: []string{"/metrics", "/health", "/ready"}}
}

// MetricsMiddleware records HTTP metrics labelled by route pattern
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return MetricsMiddlewareWithConfig(m, DefaultMetricsConfig())
}

// MetricsMiddlewareWithConfig records HTTP metrics, skipping configured paths
func MetricsMiddlewareWithConfig(m *metrics.Metrics, config *MetricsConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		// Route pattern keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint returns a handler for the /metrics endpoint
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
