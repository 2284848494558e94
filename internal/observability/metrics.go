// internal/observability/metrics.go
package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LatencyMetricName is the histogram RecordLatency writes to.
const LatencyMetricName = "lockkeeper.operation.duration"

// MetricsClient interface for metrics operations
type MetricsClient interface {
	// Increment increments a counter by the given amount
	Increment(ctx context.Context, name string, value int64, attributes ...string)

	// RecordLatency records the duration of an operation in milliseconds
	RecordLatency(ctx context.Context, duration time.Duration, attributes ...string) error
}

// OTelMetrics implements MetricsClient using OpenTelemetry
type OTelMetrics struct {
	meter  metric.Meter
	logger *SLogger

	mu       sync.Mutex
	counters map[string]metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewMetricsClient creates a metrics client on the global meter provider.
func NewMetricsClient(cfg Config, l *SLogger) (*OTelMetrics, error) {
	meter := otel.GetMeterProvider().Meter(
		cfg.ServiceName,
		metric.WithInstrumentationVersion(cfg.ServiceVersion),
	)
	return NewMetricsClientWithMeter(meter, l)
}

// NewMetricsClientWithMeter creates a metrics client on an explicit meter.
func NewMetricsClientWithMeter(meter metric.Meter, l *SLogger) (*OTelMetrics, error) {
	latency, err := meter.Float64Histogram(
		LatencyMetricName,
		metric.WithUnit("ms"),
		metric.WithDescription("Latency of lock operations"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelMetrics{
		meter:    meter,
		logger:   l,
		counters: make(map[string]metric.Int64Counter),
		latency:  latency,
	}, nil
}

// Increment increments a counter metric
func (m *OTelMetrics) Increment(ctx context.Context, name string, value int64, attributes ...string) {
	counter, err := m.counter(name)
	if err != nil {
		m.logger.Errorf("Failed to create counter metric '%s': %v", name, err)
		return
	}

	counter.Add(ctx, value, metric.WithAttributes(attributesFromTags(attributes)...))
}

// RecordLatency records an operation latency
func (m *OTelMetrics) RecordLatency(ctx context.Context, duration time.Duration, attributes ...string) error {
	ms := float64(duration) / float64(time.Millisecond)
	m.latency.Record(ctx, ms, metric.WithAttributes(attributesFromTags(attributes)...))
	return nil
}

func (m *OTelMetrics) counter(name string) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	m.counters[name] = c
	return c, nil
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

// Increment implements MetricsClient.
func (NoopMetrics) Increment(context.Context, string, int64, ...string) {}

// RecordLatency implements MetricsClient.
func (NoopMetrics) RecordLatency(context.Context, time.Duration, ...string) error { return nil }

// Helper function to convert string tags to OpenTelemetry attributes
func attributesFromTags(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i < len(tags); i += 2 {
		if i+1 < len(tags) {
			attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
		}
	}
	return attrs
}
