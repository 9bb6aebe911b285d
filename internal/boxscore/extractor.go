package boxscore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/dataset"
	"github.com/fortuna/hoopstats/internal/pages"
)

const defaultProgressEvery = 100

// Options configures an Extractor.
type Options struct {
	// ProgressEvery is how many games pass between progress reports.
	ProgressEvery int
	// Progress, if set, is called alongside each progress log line.
	Progress func(done, total int)
}

// Extractor turns every cached box-score page into the team-game table.
type Extractor struct {
	scores *pages.Store
	opts   Options
	logger *zap.Logger
}

// NewExtractor reads box scores from the given store.
func NewExtractor(scores *pages.Store, opts Options, logger *zap.Logger) *Extractor {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	return &Extractor{scores: scores, opts: opts, logger: logger.Named("extract")}
}

// Run parses every cached page in file-name order and returns the combined
// table. The first unparseable page aborts the run.
func (e *Extractor) Run(ctx context.Context) (*dataset.Table, error) {
	names, err := e.scores.List()
	if err != nil {
		return nil, err
	}
	e.logger.Info("extracting box scores", zap.Int("pages", len(names)))

	b := NewBuilder()
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		html, err := e.scores.Load(name)
		if err != nil {
			return nil, err
		}
		page, err := ParsePage(html)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := b.Add(name, page); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		if done := i + 1; done%e.opts.ProgressEvery == 0 {
			e.logger.Info("progress", zap.Int("games", done), zap.Int("total", len(names)))
			if e.opts.Progress != nil {
				e.opts.Progress(done, len(names))
			}
		}
	}

	table := b.Table()
	e.logger.Info("extraction complete",
		zap.Int("games", b.Games()),
		zap.Int("rows", table.Len()),
		zap.Int("stat_columns", len(b.Schema())))
	return table, nil
}
