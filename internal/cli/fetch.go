package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/browser"
	"github.com/fortuna/hoopstats/internal/crawl"
	"github.com/fortuna/hoopstats/internal/pages"
	"github.com/fortuna/hoopstats/internal/publisher"
)

var (
	flagFirstSeason int
	flagLastSeason  int
)

func newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Cache schedule and box-score pages for the configured seasons",
		RunE:  runFetch,
	}
	cmd.Flags().IntVar(&flagFirstSeason, "first-season", 0, "First season to crawl (overrides config)")
	cmd.Flags().IntVar(&flagLastSeason, "last-season", 0, "Last season to crawl (overrides config)")
	return cmd
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if flagFirstSeason != 0 {
		cfg.Crawl.FirstSeason = flagFirstSeason
	}
	if flagLastSeason != 0 {
		cfg.Crawl.LastSeason = flagLastSeason
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	schedules, err := pages.NewStore(cfg.SchedulesDir())
	if err != nil {
		return fmt.Errorf("initializing schedule store: %w", err)
	}
	scores, err := pages.NewStore(cfg.ScoresDir())
	if err != nil {
		return fmt.Errorf("initializing score store: %w", err)
	}

	reporters := crawl.Reporters{&consoleReporter{logger: logger.Named("progress")}}
	var ledger crawl.FailureLedger
	if rc := connectRedis(ctx, cfg, logger); rc != nil {
		defer rc.Close()
		ledger = rc
		runID := publisher.NewRunID()
		pub := publisher.NewRedisStreamPublisher(rc.Client())
		reporters = append(reporters, publisher.NewStreamReporter(pub, runID, logger))
		logger.Info("publishing progress", zap.String("run_id", runID), zap.String("stream", publisher.ProgressStream))
	}

	client := browser.NewClient(cfg.Browser, logger)
	defer client.Close()

	fetcher := crawl.NewFetcher(client, cfg.Crawl, ledger, logger)
	crawler := crawl.NewCrawler(fetcher, schedules, scores, crawl.Options{
		BaseURL:       cfg.Crawl.BaseURL,
		Seasons:       cfg.Crawl.Seasons(),
		MaxConcurrent: cfg.Crawl.MaxConcurrent,
		Reporter:      reporters,
	}, logger)

	stats, err := crawler.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	if stats.Failed > 0 {
		logger.Warn("some pages could not be fetched; rerun fetch to retry them", zap.Int64("failed", stats.Failed))
	}
	return nil
}
