// internal/lock/metrics.go
package lock

import (
	"context"
	"time"
)

const (
	metricAcquire   = "lock.acquire"
	metricReclaimed = "lock.reclaimed"
	metricRelease   = "lock.release"

	modeSingle = "single"
	modeBatch  = "batch"

	resultAcquired  = "acquired"
	resultContended = "contended"
	resultError     = "error"
)

func (o *options) recordAcquire(ctx context.Context, prefix, mode, result string, start time.Time) {
	o.metrics.Increment(ctx, metricAcquire, 1, "lock", prefix, "mode", mode, "result", result)
	if err := o.metrics.RecordLatency(ctx, time.Since(start), "lock", prefix, "mode", mode, "op", "acquire"); err != nil {
		o.logger.Debugf("failed to record latency: %v", err)
	}
}

func (o *options) recordRelease(ctx context.Context, prefix, mode string) {
	o.metrics.Increment(ctx, metricRelease, 1, "lock", prefix, "mode", mode)
}

func (o *options) recordReclaimed(ctx context.Context, prefix string, n int) {
	o.metrics.Increment(ctx, metricReclaimed, int64(n), "lock", prefix)
}
