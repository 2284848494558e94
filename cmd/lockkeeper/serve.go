// cmd/lockkeeper/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/avivl/lockkeeper/internal/config"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/avivl/lockkeeper/internal/server"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP lock API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	loader, cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	otelShutdown, err := observability.InitProvider(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			logger.Errorf("OpenTelemetry shutdown: %v", err)
		}
	}()

	otelMetrics, err := observability.NewMetricsClient(cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("failed to create metrics client: %w", err)
	}
	promMetrics, err := observability.NewPromMetrics(logger)
	if err != nil {
		return fmt.Errorf("failed to create prometheus registry: %w", err)
	}

	srv, err := server.NewServer(cfg, logger,
		observability.Fanout{otelMetrics, promMetrics},
		server.WithMetricsHandler(promMetrics.Handler()),
	)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	loader.AddWatcher(func(newConfig *config.GlobalConfig) {
		if newConfig.Backend.Type != cfg.Backend.Type {
			logger.Warnf("backend change from %s to %s requires a restart", cfg.Backend.Type, newConfig.Backend.Type)
		}
		if err := srv.UpdateLocks(newConfig.Definitions()); err != nil {
			logger.Errorf("Failed to apply lock definitions: %v", err)
		}
	})
	if loader.Watch() {
		logger.Infof("Watching %s for changes", loader.ConfigFileUsed())
	}

	logger.Infof("Starting lockkeeper with %s backend", cfg.Backend.Type)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx, server.NewStoreFromConfig)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(sctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}
