// internal/lock/lock.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avivl/lockkeeper/internal/store"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap/zapcore"
)

// Lock guards a single resource key with the store's set-if-absent primitive.
// It keeps no state about who holds what; the store is the only source of truth.
type Lock struct {
	st   store.Store
	cfg  Config
	opts options
}

// New builds a single-resource lock.
func New(st store.Store, cfg Config, opts ...Option) (*Lock, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Lock{st: st, cfg: cfg, opts: buildOptions(opts)}, nil
}

// Config returns the lock configuration.
func (l *Lock) Config() Config {
	return l.cfg
}

// Acquire tries once to take the lock on suffix.
// Contention is reported as (false, ErrorMessage, nil); only store failures return an error.
func (l *Lock) Acquire(ctx context.Context, suffix string) (bool, string, error) {
	start := time.Now()
	key := l.cfg.Key(suffix)

	ok, err := l.st.SetNX(ctx, key, l.opts.token(), l.cfg.TTL)
	if err != nil {
		l.opts.recordAcquire(ctx, l.cfg.Prefix, modeSingle, resultError, start)
		l.opts.logger.LogWithContext(ctx, zapcore.ErrorLevel, "lock acquire failed", "key", key, "error", err)
		return false, "", fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		l.opts.recordAcquire(ctx, l.cfg.Prefix, modeSingle, resultContended, start)
		l.opts.logger.LogWithContext(ctx, zapcore.DebugLevel, "lock held elsewhere", "key", key)
		return false, l.cfg.ErrorMessage, nil
	}

	l.opts.recordAcquire(ctx, l.cfg.Prefix, modeSingle, resultAcquired, start)
	l.opts.logger.LogWithContext(ctx, zapcore.DebugLevel, "lock acquired", "key", key, "ttl", l.cfg.TTL)
	return true, "", nil
}

// Release deletes the key for suffix. It does not check who holds it and
// succeeds when the key is already gone.
func (l *Lock) Release(ctx context.Context, suffix string) error {
	key := l.cfg.Key(suffix)
	if err := l.st.Delete(ctx, key); err != nil {
		l.opts.logger.LogWithContext(ctx, zapcore.ErrorLevel, "lock release failed", "key", key, "error", err)
		return fmt.Errorf("release %s: %w", key, err)
	}
	l.opts.recordRelease(ctx, l.cfg.Prefix, modeSingle)
	return nil
}

// Check reports whether the key for suffix exists. It never writes.
func (l *Lock) Check(ctx context.Context, suffix string) (bool, error) {
	key := l.cfg.Key(suffix)
	_, found, err := l.st.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check %s: %w", key, err)
	}
	return found, nil
}

var errContended = errors.New("contended")

// AcquireWait retries Acquire with exponential backoff until the lock is
// taken, maxWait elapses, or ctx is done.
func (l *Lock) AcquireWait(ctx context.Context, suffix string, maxWait time.Duration) (bool, string, error) {
	if maxWait <= 0 {
		return l.Acquire(ctx, suffix)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = maxWait

	var message string
	err := backoff.RetryNotify(func() error {
		ok, msg, err := l.Acquire(ctx, suffix)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			message = msg
			return errContended
		}
		return nil
	}, backoff.WithContext(b, ctx), func(_ error, wait time.Duration) {
		l.opts.logger.LogWithContext(ctx, zapcore.DebugLevel, "lock busy, retrying", "key", l.cfg.Key(suffix), "wait", wait)
	})

	switch {
	case err == nil:
		return true, "", nil
	case errors.Is(err, errContended):
		return false, message, nil
	default:
		return false, "", err
	}
}

// Do runs fn while holding the lock on suffix and releases it afterwards.
// A held lock is reported as *BusyError.
func (l *Lock) Do(ctx context.Context, suffix string, fn func(context.Context) error) error {
	ok, msg, err := l.Acquire(ctx, suffix)
	if err != nil {
		return err
	}
	if !ok {
		return &BusyError{Lock: l.cfg.Prefix, Message: msg}
	}

	defer func() {
		if rerr := l.Release(context.WithoutCancel(ctx), suffix); rerr != nil {
			l.opts.logger.LogWithContext(ctx, zapcore.WarnLevel, "release after Do failed", "key", l.cfg.Key(suffix), "error", rerr)
		}
	}()

	return fn(ctx)
}
