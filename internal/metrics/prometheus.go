package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus holds the service's Prometheus instruments on a private
// registry, so independent collectors never collide on registration.
type Prometheus struct {
	registry    *prometheus.Registry
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	predictions *prometheus.CounterVec
	dropped     prometheus.Counter
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flavorsnap_http_requests_total",
				Help: "Total number of HTTP requests served",
			},
			[]string{"method", "endpoint", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flavorsnap_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flavorsnap_predictions_total",
				Help: "Total number of predictions returned, by label",
			},
			[]string{"label"},
		),
		dropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "flavorsnap_metric_events_dropped_total",
				Help: "Metric events dropped because the collector buffer was full",
			},
		),
	}

	p.registry.MustRegister(
		p.requests,
		p.duration,
		p.predictions,
		p.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return p
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
