package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/config"
	"github.com/abd-ghreeb/venture-pulse/internal/seed"
)

func runSeed(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	st, err := openPostgres(cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer closeQuietly(st.Close, logger)

	count, err := seed.EnsureSeed(ctx, st)
	if err != nil {
		return err
	}
	logger.Info("seed complete", zap.Int("inserted", count))
	return nil
}
