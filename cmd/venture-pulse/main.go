package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool
	var logger *zap.Logger

	root := &cobra.Command{
		Use:           "venture-pulse",
		Short:         "Conversational analytics over the venture portfolio",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	serve := func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err = newLogger(cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg, logger)
	}
	root.RunE = serve

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  serve,
	})
	root.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Apply the schema and load the bundled ventures into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err = newLogger(cfg.LogLevel, verbose)
			if err != nil {
				return err
			}
			return runSeed(cmd.Context(), cfg, logger)
		},
	})
	return root
}

func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else if parsed, err := zapcore.ParseLevel(strings.TrimSpace(level)); err == nil {
		config.Level = zap.NewAtomicLevelAt(parsed)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
