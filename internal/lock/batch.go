// internal/lock/batch.go
package lock

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/avivl/lockkeeper/internal/store"
	"go.uber.org/zap/zapcore"
)

// BatchLock takes a set of resource keys all-or-nothing.
//
// Records hold the acquisition time in Unix seconds. A record older than the
// TTL is a zombie left by a holder that died before its expiry was installed,
// and is reclaimed by the next acquirer.
type BatchLock struct {
	st   store.Store
	cfg  Config
	opts options
}

// NewBatch builds a batch lock coordinator.
func NewBatch(st store.Store, cfg Config, opts ...Option) (*BatchLock, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &BatchLock{st: st, cfg: cfg, opts: buildOptions(opts)}, nil
}

// Config returns the lock configuration.
func (b *BatchLock) Config() Config {
	return b.cfg
}

// Acquire takes every key for suffixes or none of them.
// An empty input succeeds without touching the store.
func (b *BatchLock) Acquire(ctx context.Context, suffixes []string) (bool, string, error) {
	keys := b.cfg.Keys(suffixes)
	if len(keys) == 0 {
		return true, "", nil
	}
	start := time.Now()

	for attempt := 1; attempt <= b.opts.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			b.opts.recordAcquire(ctx, b.cfg.Prefix, modeBatch, resultError, start)
			return false, "", err
		}

		now := b.opts.now()
		stamp := strconv.FormatInt(now.Unix(), 10)
		values := make(map[string]string, len(keys))
		for _, k := range keys {
			values[k] = stamp
		}

		ok, err := b.st.MSetNX(ctx, values)
		if err != nil {
			b.opts.recordAcquire(ctx, b.cfg.Prefix, modeBatch, resultError, start)
			b.opts.logger.LogWithContext(ctx, zapcore.ErrorLevel, "batch acquire failed", "keys", keys, "error", err)
			return false, "", fmt.Errorf("acquire %d keys under %s: %w", len(keys), b.cfg.Prefix, err)
		}
		if ok {
			b.installExpiry(ctx, keys)
			b.opts.recordAcquire(ctx, b.cfg.Prefix, modeBatch, resultAcquired, start)
			b.opts.logger.LogWithContext(ctx, zapcore.DebugLevel, "batch acquired", "keys", keys, "attempt", attempt)
			return true, "", nil
		}

		reclaimed, err := b.reclaim(ctx, keys, now)
		if err != nil {
			b.opts.recordAcquire(ctx, b.cfg.Prefix, modeBatch, resultError, start)
			return false, "", err
		}
		if reclaimed == 0 {
			b.opts.recordAcquire(ctx, b.cfg.Prefix, modeBatch, resultContended, start)
			return false, b.cfg.ErrorMessage, nil
		}
	}

	b.opts.logger.LogWithContext(ctx, zapcore.WarnLevel, "batch acquire gave up",
		"prefix", b.cfg.Prefix, "keys", keys, "attempts", b.opts.maxAttempts)
	b.opts.recordAcquire(ctx, b.cfg.Prefix, modeBatch, resultContended, start)
	return false, b.cfg.ErrorMessage, nil
}

// installExpiry sets the store-level TTL on freshly taken keys. Failures are
// logged only: the timestamp still lets the next acquirer reclaim the record.
func (b *BatchLock) installExpiry(ctx context.Context, keys []string) {
	for _, k := range keys {
		ok, err := b.st.Expire(ctx, k, b.cfg.TTL)
		switch {
		case err != nil:
			b.opts.logger.LogWithContext(ctx, zapcore.WarnLevel, "failed to set expiry on batch key", "key", k, "error", err)
		case !ok:
			b.opts.logger.LogWithContext(ctx, zapcore.WarnLevel, "batch key vanished before expiry was set", "key", k)
		}
	}
}

// reclaim deletes zombie records among keys and returns how many it removed.
func (b *BatchLock) reclaim(ctx context.Context, keys []string, now time.Time) (int, error) {
	ttl := b.cfg.ttlSeconds()
	reclaimed := 0

	for _, k := range keys {
		value, found, err := b.st.Get(ctx, k)
		if err != nil {
			return reclaimed, fmt.Errorf("inspect %s: %w", k, err)
		}
		if !found {
			continue
		}

		stamp, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			b.opts.logger.LogWithContext(ctx, zapcore.WarnLevel, "batch key holds a non-timestamp value, treating as held", "key", k, "value", value)
			continue
		}
		if now.Unix()-stamp < ttl {
			continue
		}

		ok, err := b.st.CompareAndDelete(ctx, k, value)
		if err != nil {
			return reclaimed, fmt.Errorf("reclaim %s: %w", k, err)
		}
		if ok {
			reclaimed++
			b.opts.logger.LogWithContext(ctx, zapcore.InfoLevel, "reclaimed zombie batch key", "key", k, "age_seconds", now.Unix()-stamp)
		}
	}

	if reclaimed > 0 {
		b.opts.recordReclaimed(ctx, b.cfg.Prefix, reclaimed)
	}
	return reclaimed, nil
}

// Release deletes every key for suffixes in one store call.
func (b *BatchLock) Release(ctx context.Context, suffixes []string) error {
	keys := b.cfg.Keys(suffixes)
	if len(keys) == 0 {
		return nil
	}
	if err := b.st.Delete(ctx, keys...); err != nil {
		b.opts.logger.LogWithContext(ctx, zapcore.ErrorLevel, "batch release failed", "keys", keys, "error", err)
		return fmt.Errorf("release %d keys under %s: %w", len(keys), b.cfg.Prefix, err)
	}
	b.opts.recordRelease(ctx, b.cfg.Prefix, modeBatch)
	return nil
}

// Do runs fn while holding every key for suffixes and releases them afterwards.
func (b *BatchLock) Do(ctx context.Context, suffixes []string, fn func(context.Context) error) error {
	ok, msg, err := b.Acquire(ctx, suffixes)
	if err != nil {
		return err
	}
	if !ok {
		return &BusyError{Lock: b.cfg.Prefix, Message: msg}
	}

	defer func() {
		if rerr := b.Release(context.WithoutCancel(ctx), suffixes); rerr != nil {
			b.opts.logger.LogWithContext(ctx, zapcore.WarnLevel, "release after Do failed", "prefix", b.cfg.Prefix, "error", rerr)
		}
	}()

	return fn(ctx)
}
