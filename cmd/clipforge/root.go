package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/logging"
)

var version = "0.1.0"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "clipforge",
		Short:         "Generate a music video from a song",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file path (default "+config.DefaultPath()+")")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format override (console, json)")

	cmd.AddCommand(
		newProduceCommand(opts),
		newStatusCommand(opts),
		newSnapshotCommand(opts),
		newConfigCommand(opts),
		newTestNotifyCommand(opts),
	)
	return cmd
}

// loadEnvironment resolves config and builds the process logger.
func loadEnvironment(opts *rootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, logger, nil
}
