package middleware

import (
	"strconv"
	"time"

	"wallpaperd/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency by route template
func Metrics(m metrics.GatewayMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}
