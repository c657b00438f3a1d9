package middleware

import (
	"strconv"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.LatencyBucket.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Observe(duration)
	}
}
