package boxscore

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

var (
	basicColumns    = []string{"MP", "FG", "FGA", "FG%", "PTS", "+/-"}
	advancedColumns = []string{"MP", "TS%", "ORtg", "BPM"}
)

// gameFixture renders a box-score page shaped like the saved #content markup.
type gameFixture struct {
	away, home       string
	awayPts, homePts int
	season           string
	// dropColumn removes a basic-table column from both teams.
	dropColumn string
	// skipAdvanced omits the advanced table of the named team.
	skipAdvanced string
}

func (g gameFixture) html() string {
	var b strings.Builder
	b.WriteString(`<div id="content">`)
	b.WriteString(`<table id="line_score"><thead>`)
	b.WriteString(`<tr class="over_header"><th colspan="6">Scoring</th></tr>`)
	b.WriteString(`<tr><th></th><th>1</th><th>2</th><th>3</th><th>4</th><th>T</th></tr>`)
	b.WriteString(`</thead><tbody>`)
	for _, side := range []struct {
		team string
		pts  int
	}{{g.away, g.awayPts}, {g.home, g.homePts}} {
		q := side.pts / 4
		fmt.Fprintf(&b, `<tr><th><a href="/teams/%s/%s.html">%s</a></th><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td><strong>%d</strong></td></tr>`,
			side.team, g.season, side.team, q, q, q, side.pts-3*q, side.pts)
	}
	b.WriteString(`</tbody></table>`)

	for _, side := range []struct {
		team string
		pts  int
	}{{g.away, g.awayPts}, {g.home, g.homePts}} {
		b.WriteString(g.basicTable(side.team, side.pts))
		if side.team != g.skipAdvanced {
			b.WriteString(advancedTable(side.team))
		}
	}

	fmt.Fprintf(&b, `<div id="bottom_nav_container"><a href="/boxscores/">Box Scores</a><a href="/teams/%s/%s_games.html">%s Schedule</a></div>`,
		g.home, g.season, g.home)
	b.WriteString(`</div>`)
	return b.String()
}

func (g gameFixture) basicTable(team string, pts int) string {
	rows := [][]string{
		{"Starter One", "36:10", "12", "20", ".600", strconv.Itoa(pts - 10), "+5"},
		{"Starter Two", "20:00", "4", "9", ".444", "10", "-3"},
		{"Team Totals", "240", "16", "29", ".552", strconv.Itoa(pts), ""},
	}
	cols := basicColumns
	if i := slices.Index(cols, g.dropColumn); i >= 0 {
		cols = slices.Delete(slices.Clone(cols), i, i+1)
		for r := range rows {
			rows[r] = slices.Delete(rows[r], i+1, i+2)
		}
	}
	return statTable(fmt.Sprintf("box-%s-game-basic", team), "Basic Box Score Stats", cols, rows)
}

func advancedTable(team string) string {
	rows := [][]string{
		{"Starter One", "36:10", ".650", "120", "4.2"},
		{"Starter Two", "20:00", ".540", "101", "-1.5"},
		{"Team Totals", "240", ".610", "115.0", ""},
	}
	return statTable(fmt.Sprintf("box-%s-game-advanced", team), "Advanced Box Score Stats", advancedColumns, rows)
}

func statTable(id, caption string, cols []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<table id="%s"><thead>`, id)
	fmt.Fprintf(&b, `<tr class="over_header"><th></th><th colspan="%d">%s</th></tr>`, len(cols), caption)
	b.WriteString(`<tr><th>Starters</th>`)
	for _, c := range cols {
		fmt.Fprintf(&b, `<th>%s</th>`, c)
	}
	b.WriteString(`</tr></thead><tbody>`)

	writeRow := func(cells []string) {
		fmt.Fprintf(&b, `<tr><th>%s</th>`, cells[0])
		for _, c := range cells[1:] {
			fmt.Fprintf(&b, `<td>%s</td>`, c)
		}
		b.WriteString(`</tr>`)
	}

	writeRow(rows[0])
	// Repeated header between starters and reserves.
	b.WriteString(`<tr class="thead"><th>Reserves</th>`)
	for _, c := range cols {
		fmt.Fprintf(&b, `<td>%s</td>`, c)
	}
	b.WriteString(`</tr>`)
	fmt.Fprintf(&b, `<tr><th>Bench Guy</th><td colspan="%d">Did Not Play</td></tr>`, len(cols))
	for _, r := range rows[1 : len(rows)-1] {
		writeRow(r)
	}
	b.WriteString(`</tbody><tfoot>`)
	writeRow(rows[len(rows)-1])
	b.WriteString(`</tfoot></table>`)
	return b.String()
}
