package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fortuna/hoopstats/internal/api/rest"
	"github.com/fortuna/hoopstats/internal/api/websocket"
	"github.com/fortuna/hoopstats/internal/cache"
	"github.com/fortuna/hoopstats/internal/publisher"
	"github.com/fortuna/hoopstats/internal/store"
	"github.com/fortuna/hoopstats/internal/store/repository"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve team games from Atlas and relay job progress over websocket",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.AtlasDSN == "" || cfg.RedisURL == "" {
		return fmt.Errorf("serve requires both atlas_dsn and redis_url")
	}

	db, err := store.NewDatabase(ctx, cfg.AtlasDSN, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Atlas database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("connected to Atlas database")

	rc, err := connectRedisWithRetry(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}
	defer rc.Close()

	wsServer := websocket.NewServer(logger)
	handler := rest.NewHandler(repository.NewTeamGameRepository(db), rc, rc, map[string]rest.HealthChecker{
		"atlas": db,
		"redis": rc,
	})
	restServer := rest.NewServer(cfg.RESTPort, handler, wsServer.Handler(), logger.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return wsServer.Run(gctx, publisher.NewRedisStreamPublisher(rc.Client()))
	})
	g.Go(func() error {
		logger.Info("REST API listening", zap.String("port", cfg.RESTPort))
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return restServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// connectRedisWithRetry waits for Redis to come up, as containers often
// start before it.
func connectRedisWithRetry(ctx context.Context, url string, logger *zap.Logger) (*cache.RedisCache, error) {
	const maxRetries = 30
	retryDelay := 2 * time.Second

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		rc, err := cache.NewRedisCache(ctx, url)
		if err == nil {
			logger.Info("connected to redis")
			return rc, nil
		}
		lastErr = err
		logger.Warn("redis connection attempt failed",
			zap.Int("attempt", i+1), zap.Int("max", maxRetries), zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, lastErr)
}
