package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPMetrics is the slice of the metrics collector the middleware needs.
type HTTPMetrics interface {
	ObserveHTTPRequest(method, path string, status int, d time.Duration)
	TrackInFlight() func()
}

// Metrics records request counters and latency per route template.
func Metrics(m HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		done := m.TrackInFlight()
		start := time.Now()
		c.Next()
		done()

		path := c.FullPath()
		if path == "" {
			path = "unmatched" // unknown routes share one label value
		}
		m.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
