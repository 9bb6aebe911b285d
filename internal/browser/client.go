package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/config"
)

// Client renders pages in headless Chrome and hands back a fragment of the
// resulting DOM. It is safe for concurrent use: every fetch opens its own tab.
type Client struct {
	timeout time.Duration
	logger  *zap.Logger

	allocCtx context.Context
	cancel   context.CancelFunc
}

// NewClient starts a Chrome allocator with the configured flags.
func NewClient(cfg config.BrowserConfig, logger *zap.Logger) *Client {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(cfg.UserAgent),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	timeout := cfg.PageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		timeout:  timeout,
		logger:   logger.Named("browser"),
		allocCtx: allocCtx,
		cancel:   cancel,
	}
}

// Close releases the browser process.
func (c *Client) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// InnerHTML loads url and returns the inner HTML of the first element matching
// selector. A selector that never appears surfaces as context.DeadlineExceeded
// once the page timeout elapses.
func (c *Client) InnerHTML(ctx context.Context, url, selector string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(c.allocCtx)
	defer cancelTab()

	// The tab inherits the allocator lifetime; tie it to the caller as well.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.timeout)
	defer cancelTimeout()

	var title, html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Title(&title),
		chromedp.WaitReady(selector, chromedp.ByQuery),
		chromedp.InnerHTML(selector, &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := tabCtx.Err(); ctxErr != nil && ctx.Err() == nil {
			return "", fmt.Errorf("load %s: %w", url, ctxErr)
		}
		return "", fmt.Errorf("load %s: %w", url, err)
	}

	c.logger.Info(title, zap.String("url", url))
	return html, nil
}
