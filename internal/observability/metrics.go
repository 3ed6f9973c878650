package observability

import (
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds all instruments used by the server. They are created once at
// startup and shared with the HTTP middleware, handlers, and the batch
// scheduler.
type Metrics struct {
	// HTTP metrics
	HTTPRequestDuration otelmetric.Float64Histogram
	HTTPRequestTotal    otelmetric.Int64Counter
	HTTPRequestErrors   otelmetric.Int64Counter

	// Classification metrics. ClassificationRequests is exported to
	// Prometheus as classification_requests_total.
	ClassificationRequests otelmetric.Int64Counter

	// Scheduler metrics
	BatchSize         otelmetric.Int64Histogram
	BatchFlushLatency otelmetric.Float64Histogram
	QueueDepth        otelmetric.Int64UpDownCounter
	BackendErrors     otelmetric.Int64Counter
}

// NewMetrics creates all instruments from the given Meter.
func NewMetrics(meter otelmetric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http.request.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestTotal, err = meter.Int64Counter(
		"http.request.total",
		otelmetric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	m.HTTPRequestErrors, err = meter.Int64Counter(
		"http.request.errors",
		otelmetric.WithDescription("HTTP request errors (4xx and 5xx)"),
	)
	if err != nil {
		return nil, err
	}

	m.ClassificationRequests, err = meter.Int64Counter(
		"classification.requests",
		otelmetric.WithDescription("Classification requests received"),
	)
	if err != nil {
		return nil, err
	}

	m.BatchSize, err = meter.Int64Histogram(
		"batch.size",
		otelmetric.WithDescription("Requests per backend batch"),
	)
	if err != nil {
		return nil, err
	}

	m.BatchFlushLatency, err = meter.Float64Histogram(
		"batch.flush.latency",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("Batch flush latency in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	m.QueueDepth, err = meter.Int64UpDownCounter(
		"batch.queue.depth",
		otelmetric.WithDescription("Requests waiting in the scheduler queue"),
	)
	if err != nil {
		return nil, err
	}

	m.BackendErrors, err = meter.Int64Counter(
		"backend.errors",
		otelmetric.WithDescription("Backend failures, batch-level and per-request"),
	)
	if err != nil {
		return nil, err
	}

	return &m, nil
}
