package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/flavorsnap/ml-api/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should create a new metrics instance", func() {
			Expect(m).NotTo(BeNil())
		})
	})

	Describe("IncrementRequests", func() {
		It("should increment request count for an endpoint", func() {
			m.IncrementRequests("/predict")
			m.IncrementRequests("/predict")

			snap := m.Snapshot("flavorsnap-ml-api")
			Expect(snap.TotalRequests).To(Equal(int64(2)))
			Expect(snap.Endpoints["/predict"].Requests).To(Equal(int64(2)))
		})

		It("should track multiple endpoints separately", func() {
			m.IncrementRequests("/predict")
			m.IncrementRequests("/health")
			m.IncrementRequests("/predict")

			snap := m.Snapshot("flavorsnap-ml-api")
			Expect(snap.TotalRequests).To(Equal(int64(3)))
			Expect(snap.Endpoints["/predict"].Requests).To(Equal(int64(2)))
			Expect(snap.Endpoints["/health"].Requests).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse("/predict", 100*time.Millisecond, 200)
			m.RecordResponse("/predict", 200*time.Millisecond, 200)

			snap := m.Snapshot("flavorsnap-ml-api")
			endpoint := snap.Endpoints["/predict"]

			Expect(endpoint.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(endpoint.StatusCodes[200]).To(Equal(int64(2)))
		})

		It("should track different status codes", func() {
			m.RecordResponse("/predict", 100*time.Millisecond, 200)
			m.RecordResponse("/predict", 150*time.Millisecond, 400)
			m.RecordResponse("/predict", 200*time.Millisecond, 500)

			snap := m.Snapshot("flavorsnap-ml-api")
			endpoint := snap.Endpoints["/predict"]

			Expect(endpoint.StatusCodes[200]).To(Equal(int64(1)))
			Expect(endpoint.StatusCodes[400]).To(Equal(int64(1)))
			Expect(endpoint.StatusCodes[500]).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("/predict", time.Duration(i)*time.Millisecond, 200)
			}

			snap := m.Snapshot("flavorsnap-ml-api")
			endpoint := snap.Endpoints["/predict"]

			Expect(endpoint.P50Response).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(endpoint.P95Response).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(endpoint.P99Response).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored response times to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse("/predict", time.Duration(i)*time.Millisecond, 200)
			}

			snap := m.Snapshot("flavorsnap-ml-api")
			Expect(snap.Endpoints["/predict"].AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("RecordPrediction", func() {
		It("should count predictions per label", func() {
			m.RecordPrediction("Moi Moi")
			m.RecordPrediction("Moi Moi")
			m.RecordPrediction("Jollof")

			snap := m.Snapshot("flavorsnap-ml-api")
			Expect(snap.Predictions).To(Equal(map[string]int64{"Moi Moi": 2, "Jollof": 1}))
		})
	})

	Describe("Snapshot", func() {
		It("should carry the service name", func() {
			snap := m.Snapshot("flavorsnap-ml-api")
			Expect(snap.Service).To(Equal("flavorsnap-ml-api"))
		})

		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)

			snap := m.Snapshot("flavorsnap-ml-api")
			Expect(snap.Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot("flavorsnap-ml-api")

			Expect(snap.TotalRequests).To(Equal(int64(0)))
			Expect(snap.Endpoints).To(BeEmpty())
			Expect(snap.Predictions).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.RecordResponse("/predict", time.Millisecond, 200)
			snap1 := m.Snapshot("flavorsnap-ml-api")

			m.RecordResponse("/predict", time.Millisecond, 200)
			snap2 := m.Snapshot("flavorsnap-ml-api")

			Expect(snap1.Endpoints["/predict"].StatusCodes[200]).To(Equal(int64(1)))
			Expect(snap2.Endpoints["/predict"].StatusCodes[200]).To(Equal(int64(2)))
		})
	})
})
