package middleware

import (
	"net/http"
	"time"

	"github.com/flavorsnap/ml-api/internal/metrics"
)

const unmatchedEndpoint = "unmatched"

// Metrics reports every request and its completion to collector. When routes
// are given, paths outside them are reported as "unmatched" to keep label
// cardinality bounded.
func Metrics(collector *metrics.Collector, routes ...string) Middleware {
	known := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		known[route] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, endpoint := r.Method, r.URL.Path
			if _, ok := known[endpoint]; len(known) > 0 && !ok {
				endpoint = unmatchedEndpoint
			}

			collector.Emit(metrics.MetricEvent{
				Type:     metrics.EventRequestReceived,
				Method:   method,
				Endpoint: endpoint,
			})

			start := time.Now()
			rec := newResponseRecorder(w, 0)
			next.ServeHTTP(rec, r)

			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Method:     method,
				Endpoint:   endpoint,
				Duration:   time.Since(start),
				StatusCode: rec.statusCode,
			})
		})
	}
}
