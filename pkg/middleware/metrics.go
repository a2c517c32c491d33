package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/vantagecrm/vantage/pkg/observability"
)

// Instrument records request counts and latencies. It wraps the whole
// pipeline so short-circuited and failed requests are counted with
// their final status.
func Instrument(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			metrics.HTTPRequestsTotal.
				WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).
				Inc()
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, r.URL.Path).
				Observe(time.Since(start).Seconds())
		})
	}
}
