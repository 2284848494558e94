// internal/lock/options.go
package lock

import (
	"time"

	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds the acquire/reclaim rounds of a batch acquire.
const DefaultMaxAttempts = 5

type options struct {
	logger      *observability.SLogger
	metrics     observability.MetricsClient
	now         func() time.Time
	maxAttempts int
	token       func() string
}

// Option customizes a Lock or BatchLock.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(l *observability.SLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics client.
func WithMetrics(m observability.MetricsClient) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock replaces time.Now for batch timestamps and zombie detection.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithMaxAttempts bounds how many acquire rounds a batch acquire makes.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithTokenSource sets the generator of single-lock holder tokens.
func WithTokenSource(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.token = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:      observability.NewNopLogger(),
		metrics:     observability.NoopMetrics{},
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		token:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
