package publisher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/crawl"
)

type eventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// StreamReporter forwards crawl and extraction progress to the progress
// stream. Publish failures are logged and never interrupt the job.
type StreamReporter struct {
	pub     eventPublisher
	runID   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewStreamReporter tags every event with runID.
func NewStreamReporter(pub eventPublisher, runID string, logger *zap.Logger) *StreamReporter {
	return &StreamReporter{
		pub:     pub,
		runID:   runID,
		timeout: 2 * time.Second,
		logger:  logger.Named("publisher"),
	}
}

func (r *StreamReporter) publish(e Event) {
	e.RunID = r.runID
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.pub.Publish(ctx, e); err != nil {
		r.logger.Warn("failed to publish progress", zap.String("type", e.Type), zap.Error(err))
	}
}

func (r *StreamReporter) OnJobStart(seasons []int) {
	r.publish(Event{Type: EventJobStart, Seasons: seasons})
}

func (r *StreamReporter) OnSeasonStart(season int, index int, total int) {
	r.publish(Event{Type: EventSeasonStart, Season: season, Done: index, Total: total})
}

func (r *StreamReporter) OnPageSaved(kind crawl.PageKind, url string) {
	r.publish(Event{Type: EventPageSaved, Kind: string(kind), URL: url})
}

func (r *StreamReporter) OnPageSkipped(kind crawl.PageKind, url string) {
	r.publish(Event{Type: EventPageSkipped, Kind: string(kind), URL: url})
}

func (r *StreamReporter) OnPageFailed(kind crawl.PageKind, url string) {
	r.publish(Event{Type: EventPageFailed, Kind: string(kind), URL: url})
}

func (r *StreamReporter) OnJobComplete(stats crawl.Stats) {
	r.publish(Event{Type: EventJobComplete, Fetched: stats.Fetched, Skipped: stats.Skipped, Failed: stats.Failed})
}

// OnExtractProgress reports parsed games; it fits boxscore.Options.Progress.
func (r *StreamReporter) OnExtractProgress(done, total int) {
	r.publish(Event{Type: EventExtractProgress, Done: done, Total: total})
}

// OnExtractComplete reports the final row count.
func (r *StreamReporter) OnExtractComplete(games, rows int) {
	r.publish(Event{Type: EventExtractComplete, Done: games, Total: rows})
}
