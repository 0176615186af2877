package main

import (
	"net/http"

	"github.com/flavorsnap/ml-api/config"
	"github.com/flavorsnap/ml-api/internal/handler"
	"github.com/flavorsnap/ml-api/internal/health"
	"github.com/flavorsnap/ml-api/internal/metrics"
	"github.com/flavorsnap/ml-api/internal/middleware"
	"github.com/flavorsnap/ml-api/pkg/logger"
)

const (
	routePredict        = "/predict"
	routeHealth         = "/health"
	routeMetrics        = "/metrics"
	routeMetricsSummary = "/metrics/summary"
)

func setupRouter(cfg *config.Config, evlog *logger.Logger, collector *metrics.Collector, sampler *health.Sampler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(routePredict, handler.NewPredictHandler(evlog, collector, handler.Options{
		Label:        cfg.Predict.Label,
		MaxBytes:     cfg.Predict.MaxUploadBytes,
		AllowedTypes: cfg.Predict.AllowedTypes,
	}))
	mux.Handle(routeHealth, health.NewHandler(cfg.Health.Service, sampler, evlog))
	mux.Handle(routeMetrics, collector.Prometheus().Handler())
	mux.HandleFunc(routeMetricsSummary, collector.Handler(cfg.Health.Service))

	return middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RequestLogger(evlog),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Metrics(collector, routePredict, routeHealth, routeMetrics, routeMetricsSummary),
		middleware.Recover(evlog),
	)
}
