package crawl

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/fortuna/hoopstats/internal/pages"
)

// Crawler walks season indexes down to box-score pages and caches every page
// it fetches. A page already on disk is never fetched again.
type Crawler struct {
	fetcher   *Fetcher
	schedules *pages.Store
	scores    *pages.Store
	baseURL   string
	seasons   []int
	limiter   *semaphore.Weighted
	reporter  Reporter
	logger    *zap.Logger

	inflight sync.Map // box-score file name -> struct{}
	fetched  atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// Options configures a Crawler.
type Options struct {
	BaseURL       string
	Seasons       []int
	MaxConcurrent int
	Reporter      Reporter
}

// NewCrawler wires a crawler over the two page stores.
func NewCrawler(fetcher *Fetcher, schedules, scores *pages.Store, opts Options, logger *zap.Logger) *Crawler {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = Reporters{}
	}

	return &Crawler{
		fetcher:   fetcher,
		schedules: schedules,
		scores:    scores,
		baseURL:   opts.BaseURL,
		seasons:   opts.Seasons,
		limiter:   semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		reporter:  reporter,
		logger:    logger.Named("crawl"),
	}
}

// Run fetches schedule pages season by season, then box-score pages for every
// cached schedule. Pages that cannot be fetched are skipped; only storage
// errors and cancellation end the run early.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	c.reporter.OnJobStart(c.seasons)

	if err := c.ScrapeSchedules(ctx); err != nil {
		return c.stats(), err
	}
	if err := c.ScrapeBoxScores(ctx); err != nil {
		return c.stats(), err
	}

	stats := c.stats()
	c.reporter.OnJobComplete(stats)
	return stats, nil
}

// ScrapeSchedules caches the monthly schedule pages of every season. Seasons
// are processed sequentially.
func (c *Crawler) ScrapeSchedules(ctx context.Context) error {
	for idx, season := range c.seasons {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.reporter.OnSeasonStart(season, idx, len(c.seasons))

		if err := c.scrapeSeason(ctx, season); err != nil {
			return fmt.Errorf("season %d: %w", season, err)
		}
	}
	return nil
}

func (c *Crawler) scrapeSeason(ctx context.Context, season int) error {
	indexURL := SeasonIndexURL(c.baseURL, season)
	html, ok := c.fetcher.Fetch(ctx, indexURL, SeasonIndexSelector)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.logger.Warn("season index unavailable", zap.Int("season", season))
		c.failed.Add(1)
		c.reporter.OnPageFailed(KindSchedule, indexURL)
		return nil
	}

	links, err := ScheduleLinks(c.baseURL, html)
	if err != nil {
		return fmt.Errorf("parse season index: %w", err)
	}

	for _, link := range links {
		name := FileName(link)
		exists, err := c.schedules.Exists(name)
		if err != nil {
			return err
		}
		if exists {
			c.skipped.Add(1)
			c.reporter.OnPageSkipped(KindSchedule, link)
			continue
		}

		html, ok := c.fetcher.Fetch(ctx, link, ScheduleSelector)
		if !ok {
			if err := ctx.Err(); err != nil {
				return err
			}
			c.failed.Add(1)
			c.reporter.OnPageFailed(KindSchedule, link)
			continue
		}
		if err := c.schedules.Save(name, html); err != nil {
			return err
		}
		c.fetched.Add(1)
		c.reporter.OnPageSaved(KindSchedule, link)
	}
	return nil
}

// ScrapeBoxScores processes every cached schedule page concurrently. Box-score
// fetches share one limiter so no more than MaxConcurrent are in flight.
func (c *Crawler) ScrapeBoxScores(ctx context.Context) error {
	names, err := c.schedules.List()
	if err != nil {
		return err
	}
	c.logger.Info("scraping box scores", zap.Int("schedule_pages", len(names)))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			if err := c.scrapeGames(gctx, name); err != nil {
				return fmt.Errorf("schedule %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (c *Crawler) scrapeGames(ctx context.Context, scheduleName string) error {
	html, err := c.schedules.Load(scheduleName)
	if err != nil {
		return err
	}

	links, err := BoxScoreLinks(c.baseURL, html)
	if err != nil {
		return fmt.Errorf("parse schedule: %w", err)
	}

	for _, link := range links {
		if err := c.scrapeGame(ctx, link); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) scrapeGame(ctx context.Context, link string) error {
	name := FileName(link)

	// The same game can be listed on two schedule pages; only one worker
	// fetches it.
	if _, taken := c.inflight.LoadOrStore(name, struct{}{}); taken {
		c.skipped.Add(1)
		c.reporter.OnPageSkipped(KindBoxScore, link)
		return nil
	}

	exists, err := c.scores.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		c.skipped.Add(1)
		c.reporter.OnPageSkipped(KindBoxScore, link)
		return nil
	}

	if err := c.limiter.Acquire(ctx, 1); err != nil {
		return err
	}
	html, ok := c.fetcher.FetchPaced(ctx, link, BoxScoreSelector)
	c.limiter.Release(1)

	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.failed.Add(1)
		c.reporter.OnPageFailed(KindBoxScore, link)
		return nil
	}

	if err := c.scores.Save(name, html); err != nil {
		return err
	}
	c.fetched.Add(1)
	c.reporter.OnPageSaved(KindBoxScore, link)
	return nil
}

func (c *Crawler) stats() Stats {
	return Stats{
		Fetched: c.fetched.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
	}
}
