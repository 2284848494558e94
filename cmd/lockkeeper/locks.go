// cmd/lockkeeper/locks.go
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	lockkeeperclient "github.com/avivl/lockkeeper/client/go/lockkeeper-client"
	"github.com/avivl/lockkeeper/internal/lock"
	"github.com/avivl/lockkeeper/internal/server"
	"github.com/spf13/cobra"
)

// errBusy makes the process exit non-zero when a lock is held elsewhere.
var errBusy = errors.New("lock is busy")

// locker is the subset of lock operations the commands need, served either
// by the store directly or by a lockkeeper server.
type locker interface {
	acquire(ctx context.Context, name string, suffixes []string, batch bool, wait time.Duration) (bool, string, error)
	release(ctx context.Context, name string, suffixes []string, batch bool) error
	check(ctx context.Context, name, suffix string) (bool, error)
	close() error
}

func newLocker(ctx context.Context, opts *rootOptions) (locker, error) {
	if opts.server != "" {
		c, err := lockkeeperclient.New(opts.server)
		if err != nil {
			return nil, err
		}
		return &remoteLocker{c: c}, nil
	}

	_, cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	st, err := server.NewStoreFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Backend.Type, err)
	}
	set, err := lock.NewSet(st, cfg.Definitions(), lock.WithLogger(logger))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &localLocker{set: set, closeFn: st.Close}, nil
}

type localLocker struct {
	set     *lock.Set
	closeFn func() error
}

func (l *localLocker) acquire(ctx context.Context, name string, suffixes []string, batch bool, wait time.Duration) (bool, string, error) {
	pair, err := l.set.Get(name)
	if err != nil {
		return false, "", err
	}
	if batch {
		return pair.Batch.Acquire(ctx, suffixes)
	}
	return pair.Single.AcquireWait(ctx, suffixes[0], wait)
}

func (l *localLocker) release(ctx context.Context, name string, suffixes []string, batch bool) error {
	pair, err := l.set.Get(name)
	if err != nil {
		return err
	}
	if batch {
		return pair.Batch.Release(ctx, suffixes)
	}
	return pair.Single.Release(ctx, suffixes[0])
}

func (l *localLocker) check(ctx context.Context, name, suffix string) (bool, error) {
	pair, err := l.set.Get(name)
	if err != nil {
		return false, err
	}
	return pair.Single.Check(ctx, suffix)
}

func (l *localLocker) close() error {
	return l.closeFn()
}

type remoteLocker struct {
	c *lockkeeperclient.Client
}

func (r *remoteLocker) acquire(ctx context.Context, name string, suffixes []string, batch bool, wait time.Duration) (bool, string, error) {
	var (
		res lockkeeperclient.Result
		err error
	)
	switch {
	case batch:
		res, err = r.c.AcquireBatch(ctx, name, suffixes)
	case wait > 0:
		res, err = r.c.AcquireWait(ctx, name, suffixes[0], wait)
	default:
		res, err = r.c.Acquire(ctx, name, suffixes[0])
	}
	return res.Acquired, res.Message, err
}

func (r *remoteLocker) release(ctx context.Context, name string, suffixes []string, batch bool) error {
	if batch {
		return r.c.ReleaseBatch(ctx, name, suffixes)
	}
	return r.c.Release(ctx, name, suffixes[0])
}

func (r *remoteLocker) check(ctx context.Context, name, suffix string) (bool, error) {
	return r.c.Check(ctx, name, suffix)
}

func (r *remoteLocker) close() error {
	return nil
}

// lockArgs accepts exactly one suffix, or any number with --batch.
func lockArgs(batch *bool) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if *batch {
			return cobra.MinimumNArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	}
}

func newAcquireCmd(opts *rootOptions) *cobra.Command {
	var (
		batch bool
		wait  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "acquire <lock> <suffix>...",
		Short: "Take a lock once; exits non-zero when it is busy",
		Args:  lockArgs(&batch),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			l, err := newLocker(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = l.close() }()

			ok, msg, err := l.acquire(ctx, args[0], args[1:], batch, wait)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return errBusy
			}
			fmt.Fprintln(cmd.OutOrStdout(), "acquired")
			return nil
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "Take every suffix all-or-nothing")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Keep retrying a busy single lock for up to this long")
	return cmd
}

func newReleaseCmd(opts *rootOptions) *cobra.Command {
	var batch bool

	cmd := &cobra.Command{
		Use:   "release <lock> <suffix>...",
		Short: "Release a lock; succeeds when it is not held",
		Args:  lockArgs(&batch),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			l, err := newLocker(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = l.close() }()

			if err := l.release(ctx, args[0], args[1:], batch); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "released")
			return nil
		},
	}
	cmd.Flags().BoolVar(&batch, "batch", false, "Release every suffix in one call")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <lock> <suffix>...",
		Short: "Report whether each suffix is held",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			l, err := newLocker(ctx, opts)
			if err != nil {
				return err
			}
			defer func() { _ = l.close() }()

			for _, suffix := range args[1:] {
				held, err := l.check(ctx, args[0], suffix)
				if err != nil {
					return err
				}
				state := "free"
				if held {
					state = "held"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", suffix, state)
			}
			return nil
		},
	}
}
