// internal/observability/prometheus.go
package observability

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PromNamespace prefixes every Prometheus metric name.
const PromNamespace = "lockkeeper"

// latencyLabels is the fixed label set of the Prometheus latency histogram.
var latencyLabels = []string{"lock", "mode", "op", "method", "route", "status"}

// PromMetrics implements MetricsClient on a Prometheus registry.
// A counter's label names are fixed by its first use; later calls fill
// missing labels with "" and drop unknown ones.
type PromMetrics struct {
	reg    *prometheus.Registry
	logger *SLogger

	mu       sync.Mutex
	counters map[string]*promCounter
	latency  *prometheus.HistogramVec
}

type promCounter struct {
	vec    *prometheus.CounterVec
	labels []string
}

// NewPromMetrics creates a Prometheus metrics client on a fresh registry
// that also carries the Go runtime and process collectors.
func NewPromMetrics(l *SLogger) (*PromMetrics, error) {
	if l == nil {
		l = NewNopLogger()
	}

	reg := prometheus.NewRegistry()
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: PromNamespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of lock operations and HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, latencyLabels)

	if err := reg.Register(latency); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	return &PromMetrics{
		reg:      reg,
		logger:   l,
		counters: make(map[string]*promCounter),
		latency:  latency,
	}, nil
}

// Registry returns the registry metrics are written to.
func (m *PromMetrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Increment implements MetricsClient.
func (m *PromMetrics) Increment(_ context.Context, name string, value int64, attributes ...string) {
	tags := tagMap(attributes)

	c, err := m.counter(name, tags)
	if err != nil {
		m.logger.Errorf("Failed to create counter metric '%s': %v", name, err)
		return
	}
	c.vec.WithLabelValues(labelValues(c.labels, tags)...).Add(float64(value))
}

// RecordLatency implements MetricsClient.
func (m *PromMetrics) RecordLatency(_ context.Context, duration time.Duration, attributes ...string) error {
	m.latency.WithLabelValues(labelValues(latencyLabels, tagMap(attributes))...).Observe(duration.Seconds())
	return nil
}

func (m *PromMetrics) counter(name string, tags map[string]string) (*promCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c, nil
	}

	labels := make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: PromNamespace,
		Name:      promName(name),
		Help:      "Counter " + name,
	}, labels)
	if err := m.reg.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		vec = already.ExistingCollector.(*prometheus.CounterVec)
	}

	c := &promCounter{vec: vec, labels: labels}
	m.counters[name] = c
	return c, nil
}

// promName turns a dotted metric name into a Prometheus counter name.
func promName(name string) string {
	n := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if !strings.HasSuffix(n, "_total") {
		n += "_total"
	}
	return n
}

func tagMap(tags []string) map[string]string {
	m := make(map[string]string, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		m[promLabel(tags[i])] = tags[i+1]
	}
	return m
}

func promLabel(key string) string {
	return strings.ReplaceAll(key, ".", "_")
}

func labelValues(labels []string, tags map[string]string) []string {
	values := make([]string, len(labels))
	for i, l := range labels {
		values[i] = tags[l]
	}
	return values
}

// Fanout sends every measurement to all clients.
type Fanout []MetricsClient

// Increment implements MetricsClient.
func (f Fanout) Increment(ctx context.Context, name string, value int64, attributes ...string) {
	for _, c := range f {
		c.Increment(ctx, name, value, attributes...)
	}
}

// RecordLatency implements MetricsClient.
func (f Fanout) RecordLatency(ctx context.Context, duration time.Duration, attributes ...string) error {
	var errs []error
	for _, c := range f {
		if err := c.RecordLatency(ctx, duration, attributes...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
