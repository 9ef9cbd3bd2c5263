package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/ErlanBelekov/ops-dashboard/internal/metrics"
	"github.com/gin-gonic/gin"
)

const eventStreamContentType = "text/event-stream"

// Metrics counts every request and records latency for ordinary responses.
// Event streams stay open for the life of the connection, so they are
// counted but kept out of the latency histogram; live streams show up in
// dashboard_stream_subscribers instead.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		if isEventStream(c) {
			return
		}
		metrics.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
	}
}

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), eventStreamContentType)
}
