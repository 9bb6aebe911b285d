package boxscore

import (
	"errors"
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrTableNotFound is returned when a page lacks one of the tables every
// box score is expected to carry.
var ErrTableNotFound = errors.New("table not found")

// Stat table kinds, as used in the box-{team}-game-{kind} table ids.
const (
	KindBasic    = "basic"
	KindAdvanced = "advanced"
)

// Page is a parsed box-score page with grouping header rows removed.
type Page struct {
	doc *goquery.Document
}

// TeamScore is one line of the scoreline table.
type TeamScore struct {
	Team  string
	Total float64
}

// StatTable is a statistics table: one labelled row per player, with the
// team totals as the last row.
type StatTable struct {
	Columns []string
	Labels  []string
	Rows    [][]float64
}

// ParsePage parses saved box-score markup. Multi-level header rows
// (tr.over_header) and repeated in-body headers (tr.thead) are dropped so
// every table has a single header row.
func ParsePage(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("tr.over_header").Remove()
	doc.Find("tr.thead").Remove()
	return &Page{doc: doc}, nil
}

// LineScore reads the #line_score table. The first column is the team and
// the last is the final total; the away team comes first.
func (p *Page) LineScore() ([]TeamScore, error) {
	table := p.doc.Find("table#line_score").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("line_score: %w", ErrTableNotFound)
	}

	var scores []TeamScore
	bodyRows(table).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Children().Filter("th, td")
		if cells.Length() < 2 {
			return
		}
		scores = append(scores, TeamScore{
			Team:  cellText(cells.First()),
			Total: coerce(cellText(cells.Last())),
		})
	})

	if len(scores) != 2 {
		return nil, fmt.Errorf("line_score: expected 2 teams, found %d", len(scores))
	}
	return scores, nil
}

// Stats reads the box-{team}-game-{kind} table for one team.
func (p *Page) Stats(team, kind string) (*StatTable, error) {
	id := fmt.Sprintf("box-%s-game-%s", team, kind)
	table := p.doc.Find("table#" + id).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("table with id %q: %w", id, ErrTableNotFound)
	}

	header := headerRow(table).Children().Filter("th, td")
	if header.Length() < 2 {
		return nil, fmt.Errorf("table %q has no header", id)
	}

	st := &StatTable{}
	header.Each(func(i int, th *goquery.Selection) {
		if i > 0 {
			st.Columns = append(st.Columns, cellText(th))
		}
	})

	bodyRows(table).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Children().Filter("th, td")
		if cells.Length() == 0 {
			return
		}

		row := make([]float64, len(st.Columns))
		for i := range row {
			row[i] = math.NaN()
		}
		col := 0
		cells.Slice(1, goquery.ToEnd).Each(func(_ int, td *goquery.Selection) {
			// A spanning cell ("Did Not Play") fills every column it covers.
			span := 1
			if v, ok := td.Attr("colspan"); ok {
				if n, err := strconv.Atoi(v); err == nil && n > 1 {
					span = n
				}
			}
			value := coerce(cellText(td))
			for k := 0; k < span && col < len(row); k++ {
				row[col] = value
				col++
			}
		})

		st.Labels = append(st.Labels, cellText(cells.First()))
		st.Rows = append(st.Rows, row)
	})

	if len(st.Rows) == 0 {
		return nil, fmt.Errorf("table %q has no rows", id)
	}
	return st, nil
}

// Season reads the season year from the page footer navigation, whose
// second link points at the team's season schedule (/teams/BOS/2022_games.html).
func (p *Page) Season() (string, error) {
	links := p.doc.Find("#bottom_nav_container a[href]")
	if links.Length() < 2 {
		return "", fmt.Errorf("bottom_nav_container: %w", ErrTableNotFound)
	}
	href, _ := links.Eq(1).Attr("href")
	base := path.Base(href)
	return strings.SplitN(base, "_", 2)[0], nil
}

// GameDate parses the YYYYMMDD prefix of a box-score file name. An
// unparseable name yields the zero time.
func GameDate(fileName string) time.Time {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if len(base) < 8 {
		return time.Time{}
	}
	date, err := time.Parse("20060102", base[:8])
	if err != nil {
		return time.Time{}
	}
	return date
}

// Totals is the last row of the table: the team totals.
func (t *StatTable) Totals() []float64 {
	return t.Rows[len(t.Rows)-1]
}

// Maxes is the per-column maximum over every player row, ignoring missing
// values. A column with no values yields NaN.
func (t *StatTable) Maxes() []float64 {
	maxes := make([]float64, len(t.Columns))
	for c := range maxes {
		maxes[c] = math.NaN()
		for _, row := range t.Rows[:len(t.Rows)-1] {
			v := row[c]
			if math.IsNaN(v) {
				continue
			}
			if math.IsNaN(maxes[c]) || v > maxes[c] {
				maxes[c] = v
			}
		}
	}
	return maxes
}

// headerRow is the last thead row, or the first row of a table without a
// thead. The parser wraps bare rows in an implied tbody, so the latter is
// also the first tbody row.
func headerRow(table *goquery.Selection) *goquery.Selection {
	if head := table.Find("thead tr"); head.Length() > 0 {
		return head.Last()
	}
	return table.Find("tr").First()
}

func bodyRows(table *goquery.Selection) *goquery.Selection {
	body := table.Find("tbody tr")
	if table.Find("thead tr").Length() == 0 && body.Length() > 0 {
		body = body.Slice(1, goquery.ToEnd)
	}
	return body.AddSelection(table.Find("tfoot tr"))
}

func cellText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// coerce converts a cell to a number; anything non-numeric becomes NaN.
// Leading-dot decimals (".475") and explicit signs ("+12") are accepted.
func coerce(text string) float64 {
	if text == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
