package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fortuna/hoopstats/internal/cache"
)

var flagClearFailures bool

// failureLedger is the part of the Redis cache the failures command uses.
type failureLedger interface {
	Failures(ctx context.Context) (map[string]string, error)
	ClearFailures(ctx context.Context, urls ...string) error
}

var _ failureLedger = (*cache.RedisCache)(nil)

func newFailuresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures [url...]",
		Short: "List pages whose fetch exhausted every retry",
		Long: `failures prints the failure ledger kept in Redis. With --clear it forgets the
given URLs, or the whole ledger when none are given.`,
		RunE: runFailures,
	}
	cmd.Flags().BoolVar(&flagClearFailures, "clear", false, "Clear the listed URLs, or every entry")
	return cmd
}

func runFailures(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RedisURL == "" {
		return fmt.Errorf("failures requires redis_url")
	}
	rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer rc.Close()

	if flagClearFailures {
		return clearFailures(ctx, cmd.OutOrStdout(), rc, args)
	}
	return printFailures(ctx, cmd.OutOrStdout(), rc)
}

// printFailures writes one "url<TAB>time<TAB>error" line per entry, sorted
// by URL.
func printFailures(ctx context.Context, w io.Writer, ledger failureLedger) error {
	entries, err := ledger.Failures(ctx)
	if err != nil {
		return fmt.Errorf("reading failure ledger: %w", err)
	}
	urls := make([]string, 0, len(entries))
	for url := range entries {
		urls = append(urls, url)
	}
	sort.Strings(urls)

	for _, url := range urls {
		stamp, msg, ok := strings.Cut(entries[url], "|")
		if !ok {
			stamp, msg = "-", entries[url]
		}
		if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", url, stamp, msg); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "%d failed page(s)\n", len(urls))
	return err
}

func clearFailures(ctx context.Context, w io.Writer, ledger failureLedger, urls []string) error {
	if err := ledger.ClearFailures(ctx, urls...); err != nil {
		return fmt.Errorf("clearing failure ledger: %w", err)
	}
	if len(urls) == 0 {
		_, err := fmt.Fprintln(w, "cleared every failed page")
		return err
	}
	_, err := fmt.Fprintf(w, "cleared %d failed page(s)\n", len(urls))
	return err
}
