package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/cache"
	"github.com/fortuna/hoopstats/internal/config"
	"github.com/fortuna/hoopstats/internal/logging"
)

const (
	appName    = "hoopstats"
	appVersion = "1.0.0"
)

var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Crawl basketball-reference box scores and build a team-game dataset",
		Long: `hoopstats caches NBA schedule and box-score pages from basketball-reference.com
and turns the cached box scores into one row per team per game.`,
		Version:       appVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Directory for cached pages (overrides config)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	cmd.AddCommand(newFetchCmd(), newExtractCmd(), newServeCmd(), newFailuresCmd())
	return cmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// setup loads configuration, applies persistent flags and builds the logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return cfg, nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger.Named(appName), nil
}

// connectRedis returns nil when no Redis URL is configured. A configured but
// unreachable Redis is logged and skipped for the batch jobs.
func connectRedis(ctx context.Context, cfg config.Config, logger *zap.Logger) *cache.RedisCache {
	if cfg.RedisURL == "" {
		return nil
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn("redis unavailable, continuing without progress stream", zap.Error(err))
		return nil
	}
	logger.Info("connected to redis")
	return rc
}
