// cmd/lockkeeper/root.go
package main

import (
	"context"
	"fmt"

	"github.com/avivl/lockkeeper/internal/config"
	"github.com/avivl/lockkeeper/internal/observability"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	server     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lockkeeper",
		Short:         "Distributed locks over a shared coordination store",
		Long:          "lockkeeper guards resources with single and all-or-nothing batch locks kept in Redis, DynamoDB, ScyllaDB or memory.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load(".env")
			_ = godotenv.Load(".env.local")
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", ".", "Path to the configuration file or the directory holding config.yaml")
	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "Address of a running lockkeeper server; when empty the store is used directly")

	cmd.AddCommand(
		newServeCmd(opts),
		newAcquireCmd(opts),
		newReleaseCmd(opts),
		newCheckCmd(opts),
		newBackendsCmd(opts),
	)
	return cmd
}

// loadConfig loads the configuration and builds the logger it asks for.
func loadConfig(opts *rootOptions) (*config.ConfigLoader, *config.GlobalConfig, *observability.SLogger, error) {
	loader, cfg, err := config.LoadConfig(opts.configPath, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger.Level.GetZapLevel())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return loader, cfg, logger, nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
