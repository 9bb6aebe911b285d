package boxscore

import (
	"fmt"
	"math"
	"strings"

	"github.com/fortuna/hoopstats/internal/dataset"
)

// Summary is one team's aggregated line for a game: the totals row of the
// basic and advanced tables followed by the per-column player maxima.
type Summary struct {
	Names  []string
	Values []float64
}

// Summarize builds a team summary from its two stat tables. Names are
// lowercased; maxima carry a "_max" suffix.
func Summarize(basic, advanced *StatTable) Summary {
	var s Summary
	for _, t := range []*StatTable{basic, advanced} {
		for i, v := range t.Totals() {
			s.Names = append(s.Names, strings.ToLower(t.Columns[i]))
			s.Values = append(s.Values, v)
		}
	}
	for _, t := range []*StatTable{basic, advanced} {
		for i, v := range t.Maxes() {
			s.Names = append(s.Names, strings.ToLower(t.Columns[i])+"_max")
			s.Values = append(s.Values, v)
		}
	}
	return s
}

// Schema is the fixed list of statistic columns every summary is projected
// onto.
type Schema []string

// NewSchema derives the column list from a summary: first occurrence of
// each name, in order, without box plus/minus columns.
func NewSchema(s Summary) Schema {
	seen := make(map[string]bool, len(s.Names))
	var schema Schema
	for _, name := range s.Names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if strings.Contains(name, "bpm") {
			continue
		}
		schema = append(schema, name)
	}
	return schema
}

// Reindex projects a summary onto the schema. Columns the summary lacks are
// NaN; extra columns are dropped; a repeated name resolves to its first value.
func (sc Schema) Reindex(s Summary) []float64 {
	first := make(map[string]float64, len(s.Names))
	for i, name := range s.Names {
		if _, ok := first[name]; !ok {
			first[name] = s.Values[i]
		}
	}

	out := make([]float64, len(sc))
	for i, name := range sc {
		v, ok := first[name]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Builder accumulates games into one team-game table. The schema is fixed by
// the first team summary it sees.
type Builder struct {
	schema Schema
	table  *dataset.Table
	games  int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add parses one box-score page and appends a row per team, each paired with
// its opponent's fields. fileName supplies the game date.
func (b *Builder) Add(fileName string, page *Page) error {
	line, err := page.LineScore()
	if err != nil {
		return err
	}

	var summaries [2]Summary
	for i, ts := range line {
		basic, err := page.Stats(ts.Team, KindBasic)
		if err != nil {
			return err
		}
		advanced, err := page.Stats(ts.Team, KindAdvanced)
		if err != nil {
			return err
		}
		summaries[i] = Summarize(basic, advanced)

		if b.schema == nil {
			b.schema = NewSchema(summaries[i])
			b.table = dataset.NewTable(b.columns())
		}
	}

	season, err := page.Season()
	if err != nil {
		return err
	}
	date := GameDate(fileName)

	for i := range line {
		opp := 1 - i
		row := make(dataset.Row, 0, len(b.table.Columns()))
		row = appendSide(row, b.schema.Reindex(summaries[i]), line[i], i)
		row = appendSide(row, b.schema.Reindex(summaries[opp]), line[opp], opp)
		row = append(row, season, date, line[i].Total > line[opp].Total)
		if err := b.table.Append(row); err != nil {
			return fmt.Errorf("append %s: %w", line[i].Team, err)
		}
	}
	b.games++
	return nil
}

// Table returns the accumulated rows. Before the first game it is empty and
// has no columns.
func (b *Builder) Table() *dataset.Table {
	if b.table == nil {
		return dataset.NewTable(nil)
	}
	return b.table
}

// Games is the number of games added.
func (b *Builder) Games() int {
	return b.games
}

// Schema returns the statistic columns, or nil before the first game.
func (b *Builder) Schema() Schema {
	return b.schema
}

func (b *Builder) columns() []dataset.Column {
	var cols []dataset.Column
	for _, suffix := range []string{"", "_opp"} {
		for _, name := range b.schema {
			cols = append(cols, dataset.Column{Name: name + suffix, Kind: dataset.Number})
		}
		cols = append(cols,
			dataset.Column{Name: "team" + suffix, Kind: dataset.Text},
			dataset.Column{Name: "total" + suffix, Kind: dataset.Number},
			dataset.Column{Name: "home" + suffix, Kind: dataset.Integer},
		)
	}
	return append(cols,
		dataset.Column{Name: "season", Kind: dataset.Text},
		dataset.Column{Name: "date", Kind: dataset.Date},
		dataset.Column{Name: "won", Kind: dataset.Bool},
	)
}

func appendSide(row dataset.Row, stats []float64, score TeamScore, home int) dataset.Row {
	for _, v := range stats {
		row = append(row, v)
	}
	return append(row, score.Team, score.Total, home)
}
