package main

import (
	"context"
	"fmt"

	"chirper/internal/bootstrap"
	"chirper/internal/config"
	"chirper/internal/middleware"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "chirpctl",
		Short:         "Operate a chirper deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newSeedCmd())
	return root
}

// loadRuntime reads the configuration and connects without touching the schema.
func loadRuntime(ctx context.Context, opts bootstrap.Options) (*config.Config, *bootstrap.Runtime, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(cfg.Env, cfg.LogLevel)

	opts.SkipStore = true
	rt, err := bootstrap.InitRuntime(ctx, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rt, nil
}
