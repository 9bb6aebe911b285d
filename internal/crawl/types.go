package crawl

// PageKind distinguishes the two kinds of cached pages.
type PageKind string

const (
	KindSchedule PageKind = "schedule"
	KindBoxScore PageKind = "boxscore"
)

// Stats counts what a crawl did.
type Stats struct {
	Fetched int64 `json:"fetched"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Reporter receives lifecycle callbacks from the crawler. Page callbacks may
// arrive from several goroutines at once.
type Reporter interface {
	OnJobStart(seasons []int)
	OnSeasonStart(season int, index int, total int)
	OnPageSaved(kind PageKind, url string)
	OnPageSkipped(kind PageKind, url string)
	OnPageFailed(kind PageKind, url string)
	OnJobComplete(stats Stats)
}

// Reporters fans callbacks out to several reporters in order.
type Reporters []Reporter

func (rs Reporters) OnJobStart(seasons []int) {
	for _, r := range rs {
		r.OnJobStart(seasons)
	}
}

func (rs Reporters) OnSeasonStart(season int, index int, total int) {
	for _, r := range rs {
		r.OnSeasonStart(season, index, total)
	}
}

func (rs Reporters) OnPageSaved(kind PageKind, url string) {
	for _, r := range rs {
		r.OnPageSaved(kind, url)
	}
}

func (rs Reporters) OnPageSkipped(kind PageKind, url string) {
	for _, r := range rs {
		r.OnPageSkipped(kind, url)
	}
}

func (rs Reporters) OnPageFailed(kind PageKind, url string) {
	for _, r := range rs {
		r.OnPageFailed(kind, url)
	}
}

func (rs Reporters) OnJobComplete(stats Stats) {
	for _, r := range rs {
		r.OnJobComplete(stats)
	}
}
