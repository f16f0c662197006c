package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/recibos/taxbot/internal/infrastructure/metrics"
)

// HTTPMetrics records request counts and latencies per route pattern.
// A nil *metrics.Metrics turns it into a pass-through.
func HTTPMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		// FullPath is the route pattern; empty for unmatched routes
		m.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
