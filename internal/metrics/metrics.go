package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled HTTP requests by status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rollcall_http_requests_total",
		Help: "HTTP requests handled, by status code.",
	}, []string{"code"})

	// ScansTotal counts recorded attendance scans.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rollcall_scans_total",
		Help: "Attendance scans recorded.",
	})
)

// GinMiddleware counts every handled request by response code.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		RequestsTotal.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()
	}
}
