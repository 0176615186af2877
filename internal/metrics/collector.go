package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"
)

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventResponseCompleted EventType = "response_completed"
	EventPredictionMade    EventType = "prediction_made"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Method     string
	Endpoint   string
	Duration   time.Duration
	StatusCode int
	Label      string
}

type Collector struct {
	eventCh    chan MetricEvent
	metrics    *Metrics
	prometheus *Prometheus
	logger     *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:    make(chan MetricEvent, bufferSize),
		metrics:    NewMetrics(),
		prometheus: NewPrometheus(),
		logger:     logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking. Events are dropped when the buffer is
// full.
func (c *Collector) Emit(event MetricEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
		c.prometheus.dropped.Inc()
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests(event.Endpoint)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Endpoint, event.Duration, event.StatusCode)
		c.prometheus.requests.WithLabelValues(event.Method, event.Endpoint, strconv.Itoa(event.StatusCode)).Inc()
		c.prometheus.duration.WithLabelValues(event.Method, event.Endpoint).Observe(event.Duration.Seconds())

	case EventPredictionMade:
		c.metrics.RecordPrediction(event.Label)
		c.prometheus.predictions.WithLabelValues(event.Label).Inc()

	default:
		c.logger.Warn("Unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(service string) Snapshot {
	return c.metrics.Snapshot(service)
}

func (c *Collector) Prometheus() *Prometheus {
	return c.prometheus
}
