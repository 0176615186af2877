package metrics_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flavorsnap/ml-api/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
	})

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
			Expect(c.EventChannel()).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventRequestReceived", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:     metrics.EventRequestReceived,
				Method:   http.MethodPost,
				Endpoint: "/predict",
			})

			Eventually(func() int64 {
				return collector.Snapshot("svc").Endpoints["/predict"].Requests
			}).Should(Equal(int64(1)))
		})

		It("should process EventResponseCompleted", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Method:     http.MethodPost,
				Endpoint:   "/predict",
				Duration:   100 * time.Millisecond,
				StatusCode: 200,
			})

			Eventually(func() int64 {
				return collector.Snapshot("svc").Endpoints["/predict"].StatusCodes[200]
			}).Should(Equal(int64(1)))
			Expect(collector.Snapshot("svc").Endpoints["/predict"].AvgResponse).To(Equal(100 * time.Millisecond))
		})

		It("should process EventPredictionMade", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{Type: metrics.EventPredictionMade, Label: "Moi Moi"})

			Eventually(func() int64 {
				return collector.Snapshot("svc").Predictions["Moi Moi"]
			}).Should(Equal(int64(1)))
		})

		It("should drain events on context cancellation", func() {
			for i := 0; i < 5; i++ {
				collector.Emit(metrics.MetricEvent{
					Type:     metrics.EventRequestReceived,
					Endpoint: "/health",
				})
			}

			collector.Start(ctx)
			cancel()

			Eventually(func() int64 {
				return collector.Snapshot("svc").Endpoints["/health"].Requests
			}).Should(Equal(int64(5)))
		})
	})

	Describe("Emit", func() {
		It("should drop events instead of blocking when the buffer is full", func() {
			small := metrics.NewCollector(1, log)

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10; i++ {
					small.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Endpoint: "/predict"})
				}
			}()

			Eventually(done).Should(BeClosed())

			rec := httptest.NewRecorder()
			small.Prometheus().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			Expect(rec.Body.String()).To(ContainSubstring("flavorsnap_metric_events_dropped_total 9"))
		})
	})

	Describe("Handler", func() {
		It("should serve the JSON snapshot", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Endpoint: "/predict"})

			Eventually(func() int64 {
				return collector.Snapshot("svc").TotalRequests
			}).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.Handler("flavorsnap-ml-api").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/summary", nil))

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

			var snap metrics.Snapshot
			Expect(json.Unmarshal(rec.Body.Bytes(), &snap)).To(Succeed())
			Expect(snap.Service).To(Equal("flavorsnap-ml-api"))
			Expect(snap.TotalRequests).To(Equal(int64(1)))
		})
	})

	Describe("Prometheus", func() {
		It("should expose request and prediction series", func() {
			collector.Start(ctx)
			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Method:     http.MethodPost,
				Endpoint:   "/predict",
				Duration:   20 * time.Millisecond,
				StatusCode: 200,
			})
			collector.Emit(metrics.MetricEvent{Type: metrics.EventPredictionMade, Label: "Moi Moi"})

			Eventually(func() int64 {
				return collector.Snapshot("svc").Predictions["Moi Moi"]
			}).Should(Equal(int64(1)))

			rec := httptest.NewRecorder()
			collector.Prometheus().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

			body := rec.Body.String()
			Expect(body).To(ContainSubstring(`flavorsnap_http_requests_total{endpoint="/predict",method="POST",status="200"} 1`))
			Expect(body).To(ContainSubstring(`flavorsnap_http_request_duration_seconds_count{endpoint="/predict",method="POST"} 1`))
			Expect(body).To(ContainSubstring(`flavorsnap_predictions_total{label="Moi Moi"} 1`))
		})

		It("should keep registries independent between collectors", func() {
			Expect(func() {
				metrics.NewCollector(1, log)
				metrics.NewCollector(1, log)
			}).NotTo(Panic())
		})
	})
})
