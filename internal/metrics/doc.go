// Package metrics provides request metrics collection for the API.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Request counts per endpoint
//   - Response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution per endpoint
//   - Prediction counts per label
//
// The collector runs in a dedicated goroutine and processes events without
// blocking the request path. Emit never blocks: when the buffer is full the
// event is dropped and counted.
//
// Every event updates both the in-memory Metrics (served as JSON by Handler)
// and a private Prometheus registry (served by Prometheus().Handler()).
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Method:     "POST",
//		Endpoint:   "/predict",
//		Duration:   150 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot("flavorsnap-ml-api")
//
// The collector drains buffered events when its context is cancelled so no
// queued event is lost on shutdown.
package metrics
