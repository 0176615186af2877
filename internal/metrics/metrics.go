package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	requests      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	predictions   map[string]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	Uptime        time.Duration              `json:"uptime"`
	Endpoints     map[string]EndpointMetrics `json:"endpoints"`
	Predictions   map[string]int64           `json:"predictions"`
	Service       string                     `json:"service"`
}

type EndpointMetrics struct {
	Requests    int64         `json:"requests"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) IncrementRequests(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests[endpoint]++
}

func (m *Metrics) RecordResponse(endpoint string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[endpoint] = append(m.responseTimes[endpoint], duration)

	if len(m.responseTimes[endpoint]) > maxSamples {
		m.responseTimes[endpoint] = m.responseTimes[endpoint][1:]
	}

	if m.statusCodes[endpoint] == nil {
		m.statusCodes[endpoint] = make(map[int]int64)
	}
	m.statusCodes[endpoint][statusCode]++
}

func (m *Metrics) RecordPrediction(label string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.predictions[label]++
}

func (m *Metrics) Snapshot(service string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:      time.Since(m.startTime),
		Endpoints:   make(map[string]EndpointMetrics),
		Predictions: make(map[string]int64, len(m.predictions)),
		Service:     service,
	}

	for label, count := range m.predictions {
		snap.Predictions[label] = count
	}

	allEndpoints := make(map[string]bool)
	for endpoint := range m.requests {
		allEndpoints[endpoint] = true
	}
	for endpoint := range m.responseTimes {
		allEndpoints[endpoint] = true
	}

	for endpoint := range allEndpoints {
		snap.TotalRequests += m.requests[endpoint]

		em := EndpointMetrics{
			Requests:    m.requests[endpoint],
			StatusCodes: make(map[int]int64, len(m.statusCodes[endpoint])),
		}
		for code, count := range m.statusCodes[endpoint] {
			em.StatusCodes[code] = count
		}

		durations := m.responseTimes[endpoint]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgResponse = average(sorted)
			em.P50Response = percentile(sorted, 0.50)
			em.P95Response = percentile(sorted, 0.95)
			em.P99Response = percentile(sorted, 0.99)
		}

		snap.Endpoints[endpoint] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		requests:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		predictions:   make(map[string]int64),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
