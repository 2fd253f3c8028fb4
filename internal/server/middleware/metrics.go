package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/marketlinks/internal/metrics"
)

// Metrics records request counts and latency per matched route.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrap(w)

		next.ServeHTTP(rw, r)

		route := routeOf(r)
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		metrics.HTTPLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
