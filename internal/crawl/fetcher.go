package crawl

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fortuna/hoopstats/internal/config"
)

// PageSource renders a page and returns the markup under selector.
type PageSource interface {
	InnerHTML(ctx context.Context, url, selector string) (string, error)
}

// FailureLedger records URLs that could not be fetched after every retry.
type FailureLedger interface {
	RecordFailure(ctx context.Context, url string, err error) error
}

// Fetcher wraps a PageSource with linear-backoff retries and request pacing.
type Fetcher struct {
	source  PageSource
	ledger  FailureLedger
	limiter *rate.Limiter
	logger  *zap.Logger

	retries   int
	step      time.Duration
	jitterMin time.Duration
	jitterMax time.Duration
}

// NewFetcher builds a Fetcher from the crawl settings. ledger may be nil.
func NewFetcher(source PageSource, cfg config.CrawlConfig, ledger FailureLedger, logger *zap.Logger) *Fetcher {
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}

	return &Fetcher{
		source:    source,
		ledger:    ledger,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger.Named("fetch"),
		retries:   retries,
		step:      cfg.SleepStep,
		jitterMin: cfg.JitterMin,
		jitterMax: cfg.JitterMax,
	}
}

// Fetch returns the markup under selector at url. Attempt i is preceded by a
// wait of step*i. ok is false when every attempt failed or ctx ended; callers
// skip the page rather than fail the batch.
func (f *Fetcher) Fetch(ctx context.Context, url, selector string) (html string, ok bool) {
	if !sleepCtx(ctx, f.step) {
		return "", false
	}

	attempt := 0
	operation := func() error {
		attempt++
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		out, err := f.source.InnerHTML(ctx, url, selector)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		html = out
		return nil
	}

	notify := func(err error, wait time.Duration) {
		fields := []zap.Field{
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("retries", f.retries),
			zap.Duration("wait", wait),
			zap.Error(err),
		}
		if errors.Is(err, context.DeadlineExceeded) {
			f.logger.Warn("timeout fetching page", fields...)
			return
		}
		f.logger.Warn("error fetching page", fields...)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: f.step}, uint64(f.retries-1)),
		ctx,
	)

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return html, true
	}
	if ctx.Err() != nil {
		return "", false
	}

	f.logger.Error("failed to retrieve page",
		zap.String("url", url),
		zap.Int("retries", f.retries),
		zap.Error(err),
	)
	if f.ledger != nil {
		if lerr := f.ledger.RecordFailure(ctx, url, err); lerr != nil {
			f.logger.Warn("failed to record fetch failure", zap.String("url", url), zap.Error(lerr))
		}
	}
	return "", false
}

// FetchPaced waits a random delay within the jitter window, then fetches.
func (f *Fetcher) FetchPaced(ctx context.Context, url, selector string) (string, bool) {
	if !sleepCtx(ctx, f.jitter()) {
		return "", false
	}
	return f.Fetch(ctx, url, selector)
}

func (f *Fetcher) jitter() time.Duration {
	span := f.jitterMax - f.jitterMin
	if span <= 0 {
		return f.jitterMin
	}
	return f.jitterMin + time.Duration(rand.Int64N(int64(span)+1))
}

// linearBackOff waits step*n before retry n+1. The first attempt's wait of
// one step happens before the retry loop starts, so counting begins at 1.
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.step * time.Duration(b.n)
}

func (b *linearBackOff) Reset() {
	b.n = 1
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
