package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/seolint/metrics"
)

// RequestRecorder counts API requests
type RequestRecorder interface {
	RecordRequest(failed bool)
}

// StatsMiddleware tracks every API request in Prometheus and, when recorder is not
// nil, in the monthly statistics.
func StatsMiddleware(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()

		if recorder != nil && path != "/metrics" {
			recorder.RecordRequest(status >= 400)
		}
	}
}
