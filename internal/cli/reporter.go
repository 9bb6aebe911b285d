package cli

import (
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/crawl"
)

// consoleReporter logs crawl progress.
type consoleReporter struct {
	logger *zap.Logger
}

func (c *consoleReporter) OnJobStart(seasons []int) {
	c.logger.Info("starting crawl", zap.Ints("seasons", seasons))
}

func (c *consoleReporter) OnSeasonStart(season int, index int, total int) {
	c.logger.Info("season", zap.Int("season", season), zap.Int("n", index+1), zap.Int("of", total))
}

func (c *consoleReporter) OnPageSaved(kind crawl.PageKind, url string) {
	c.logger.Info("saved", zap.String("kind", string(kind)), zap.String("url", url))
}

func (c *consoleReporter) OnPageSkipped(kind crawl.PageKind, url string) {
	c.logger.Debug("already cached", zap.String("kind", string(kind)), zap.String("url", url))
}

func (c *consoleReporter) OnPageFailed(kind crawl.PageKind, url string) {
	c.logger.Warn("gave up", zap.String("kind", string(kind)), zap.String("url", url))
}

func (c *consoleReporter) OnJobComplete(stats crawl.Stats) {
	c.logger.Info("crawl complete",
		zap.Int64("fetched", stats.Fetched),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("failed", stats.Failed))
}
