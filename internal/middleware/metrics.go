package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/staffly-dev/hr-attendance-api/internal/service"
)

// Metrics records an HTTP observation per request. The route template is
// used as the path label so /attendance/employees/:id stays one series
// instead of one per employee.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			// Unmatched routes (404s) fall back to the raw path.
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
