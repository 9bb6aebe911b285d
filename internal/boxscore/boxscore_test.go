package boxscore

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fortuna/hoopstats/internal/pages"
)

func parse(t *testing.T, g gameFixture) *Page {
	t.Helper()
	page, err := ParsePage(g.html())
	require.NoError(t, err)
	return page
}

func bucksNets() gameFixture {
	return gameFixture{away: "BRK", home: "MIL", awayPts: 104, homePts: 127, season: "2022"}
}

func TestLineScore(t *testing.T) {
	scores, err := parse(t, bucksNets()).LineScore()
	require.NoError(t, err)
	assert.Equal(t, []TeamScore{{Team: "BRK", Total: 104}, {Team: "MIL", Total: 127}}, scores)
}

func TestLineScoreMissing(t *testing.T) {
	page, err := ParsePage(`<div id="content"></div>`)
	require.NoError(t, err)
	_, err = page.LineScore()
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestLineScoreWithoutThead(t *testing.T) {
	page, err := ParsePage(`<table id="line_score">` +
		`<tr><th></th><th>1</th><th>T</th></tr>` +
		`<tr><th>BRK</th><td>25</td><td>104</td></tr>` +
		`<tr><th>MIL</th><td>30</td><td>127</td></tr>` +
		`</table>`)
	require.NoError(t, err)

	scores, err := page.LineScore()
	require.NoError(t, err)
	assert.Equal(t, []TeamScore{{Team: "BRK", Total: 104}, {Team: "MIL", Total: 127}}, scores)
}

func TestStatsWithoutThead(t *testing.T) {
	page, err := ParsePage(`<table id="box-MIL-game-basic">` +
		`<tr><th>Starters</th><th>FG</th><th>PTS</th></tr>` +
		`<tr><th>Starter One</th><td>12</td><td>31</td></tr>` +
		`<tr><th>Team Totals</th><td>45</td><td>127</td></tr>` +
		`</table>`)
	require.NoError(t, err)

	st, err := page.Stats("MIL", KindBasic)
	require.NoError(t, err)
	assert.Equal(t, []string{"FG", "PTS"}, st.Columns)
	assert.Equal(t, []string{"Starter One", "Team Totals"}, st.Labels)
	assert.Equal(t, []float64{45, 127}, st.Totals())
}

func TestStatsDropsGroupingRows(t *testing.T) {
	st, err := parse(t, bucksNets()).Stats("MIL", KindBasic)
	require.NoError(t, err)

	assert.Equal(t, basicColumns, st.Columns)
	assert.Equal(t, []string{"Starter One", "Bench Guy", "Starter Two", "Team Totals"}, st.Labels)

	// "Did Not Play" spans every column and coerces to missing.
	for _, v := range st.Rows[1] {
		assert.True(t, math.IsNaN(v))
	}
	// Minutes as mm:ss are not numeric.
	assert.True(t, math.IsNaN(st.Rows[0][0]))
	assert.Equal(t, 0.6, st.Rows[0][3])
	assert.Equal(t, 5.0, st.Rows[0][5])
	assert.Equal(t, -3.0, st.Rows[2][5])
}

func TestStatsMissingTableNamesID(t *testing.T) {
	g := bucksNets()
	g.skipAdvanced = "MIL"
	_, err := parse(t, g).Stats("MIL", KindAdvanced)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Contains(t, err.Error(), "box-MIL-game-advanced")
}

func TestTotalsAndMaxes(t *testing.T) {
	st, err := parse(t, bucksNets()).Stats("MIL", KindBasic)
	require.NoError(t, err)

	totals := st.Totals()
	assert.Equal(t, 240.0, totals[0])
	assert.Equal(t, 127.0, totals[4])
	assert.True(t, math.IsNaN(totals[5]))

	maxes := st.Maxes()
	assert.True(t, math.IsNaN(maxes[0]), "no numeric minutes")
	assert.Equal(t, 12.0, maxes[1])
	assert.Equal(t, 117.0, maxes[4])
	assert.Equal(t, 5.0, maxes[5])
}

func TestSeason(t *testing.T) {
	season, err := parse(t, bucksNets()).Season()
	require.NoError(t, err)
	assert.Equal(t, "2022", season)
}

func TestGameDate(t *testing.T) {
	assert.Equal(t, time.Date(2021, 10, 19, 0, 0, 0, 0, time.UTC), GameDate("202110190MIL.html"))
	assert.Equal(t, time.Date(2021, 10, 19, 0, 0, 0, 0, time.UTC), GameDate("data/scores/202110190MIL.html"))
	assert.True(t, GameDate("boxscore.html").IsZero())
	assert.True(t, GameDate("x.html").IsZero())
}

func TestNewSchemaDedupesAndDropsBPM(t *testing.T) {
	page := parse(t, bucksNets())
	basic, err := page.Stats("MIL", KindBasic)
	require.NoError(t, err)
	advanced, err := page.Stats("MIL", KindAdvanced)
	require.NoError(t, err)

	want := Schema{
		"mp", "fg", "fga", "fg%", "pts", "+/-", "ts%", "ortg",
		"mp_max", "fg_max", "fga_max", "fg%_max", "pts_max", "+/-_max", "ts%_max", "ortg_max",
	}
	if diff := cmp.Diff(want, NewSchema(Summarize(basic, advanced))); diff != "" {
		t.Errorf("schema mismatch (-want +got):\n%s", diff)
	}
}

func TestReindex(t *testing.T) {
	schema := Schema{"pts", "fga", "ts%"}
	got := schema.Reindex(Summary{
		Names:  []string{"ts%", "pts", "extra", "pts"},
		Values: []float64{0.6, 110, 1, 99},
	})

	assert.Equal(t, 110.0, got[0], "first occurrence wins")
	assert.True(t, math.IsNaN(got[1]), "missing column is NaN")
	assert.Equal(t, 0.6, got[2])
	assert.Len(t, got, 3)
}

func TestBuilderTwoGamesFourRows(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("202110190MIL.html", parse(t, bucksNets())))
	require.NoError(t, b.Add("202110190LAL.html", parse(t, gameFixture{
		away: "GSW", home: "LAL", awayPts: 121, homePts: 114, season: "2022",
	})))

	table := b.Table()
	require.Equal(t, 4, table.Len())
	assert.Equal(t, 2, b.Games())

	wantTeams := []struct {
		team, opp string
		home      int
		won       bool
	}{
		{"BRK", "MIL", 0, false},
		{"MIL", "BRK", 1, true},
		{"GSW", "LAL", 0, true},
		{"LAL", "GSW", 1, false},
	}
	for i, w := range wantTeams {
		assert.Equal(t, w.team, table.Get(i, "team"))
		assert.Equal(t, w.opp, table.Get(i, "team_opp"))
		assert.Equal(t, w.home, table.Get(i, "home"))
		assert.Equal(t, 1-w.home, table.Get(i, "home_opp"))
		assert.Equal(t, w.won, table.Get(i, "won"))
		assert.Equal(t, "2022", table.Get(i, "season"))
	}

	// Each row mirrors its opponent's row.
	assert.Equal(t, table.Get(1, "pts"), table.Get(0, "pts_opp"))
	assert.Equal(t, 127.0, table.Get(0, "total_opp"))
	assert.Equal(t, time.Date(2021, 10, 19, 0, 0, 0, 0, time.UTC), table.Get(3, "date"))

	assert.Equal(t, -1, table.ColumnIndex("bpm"))
	assert.Equal(t, -1, table.ColumnIndex("bpm_max_opp"))
	assert.Equal(t, -1, table.ColumnIndex("index_opp"))
}

func TestBuilderSamePairTwice(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("202110190MIL.html", parse(t, bucksNets())))

	rematch := gameFixture{away: "BRK", home: "MIL", awayPts: 115, homePts: 113, season: "2022", dropColumn: "FGA"}
	require.NoError(t, b.Add("202201070MIL.html", parse(t, rematch)))

	table := b.Table()
	require.Equal(t, 4, table.Len())
	assert.Equal(t, 2, b.Games())

	wantRows := []struct {
		team, opp string
		home      int
		total     float64
		won       bool
		date      time.Time
	}{
		{"BRK", "MIL", 0, 104, false, time.Date(2021, 10, 19, 0, 0, 0, 0, time.UTC)},
		{"MIL", "BRK", 1, 127, true, time.Date(2021, 10, 19, 0, 0, 0, 0, time.UTC)},
		{"BRK", "MIL", 0, 115, true, time.Date(2022, 1, 7, 0, 0, 0, 0, time.UTC)},
		{"MIL", "BRK", 1, 113, false, time.Date(2022, 1, 7, 0, 0, 0, 0, time.UTC)},
	}
	for i, w := range wantRows {
		assert.Equal(t, w.team, table.Get(i, "team"), "row %d", i)
		assert.Equal(t, w.opp, table.Get(i, "team_opp"), "row %d", i)
		assert.Equal(t, w.home, table.Get(i, "home"), "row %d", i)
		assert.Equal(t, w.total, table.Get(i, "total"), "row %d", i)
		assert.Equal(t, w.won, table.Get(i, "won"), "row %d", i)
		assert.Equal(t, w.date, table.Get(i, "date"), "row %d", i)
	}

	// The schema came from the first game; the rematch lacks FGA on both sides.
	assert.Contains(t, b.Schema(), "fga")
	assert.Equal(t, 29.0, table.Get(0, "fga"))
	for _, i := range []int{2, 3} {
		for _, name := range []string{"fga", "fga_max", "fga_opp"} {
			assert.True(t, math.IsNaN(table.Get(i, name).(float64)), "row %d %s", i, name)
		}
		assert.Equal(t, 16.0, table.Get(i, "fg"))
	}
	assert.Equal(t, 113.0, table.Get(2, "pts_opp"))
}

func TestBuilderReindexesLaterGames(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.Add("202110190MIL.html", parse(t, bucksNets())))

	g := gameFixture{away: "GSW", home: "LAL", awayPts: 121, homePts: 114, season: "2022", dropColumn: "FGA"}
	require.NoError(t, b.Add("202110190LAL.html", parse(t, g)))

	table := b.Table()
	for _, name := range []string{"fga", "fga_max", "fga_opp"} {
		assert.True(t, math.IsNaN(table.Get(2, name).(float64)), name)
	}
	assert.Equal(t, 16.0, table.Get(2, "fg"))
}

func TestBuilderSchemaFromFirstGame(t *testing.T) {
	b := NewBuilder()
	first := bucksNets()
	first.dropColumn = "FGA"
	require.NoError(t, b.Add("202110190MIL.html", parse(t, first)))
	require.NoError(t, b.Add("202110190LAL.html", parse(t, gameFixture{
		away: "GSW", home: "LAL", awayPts: 121, homePts: 114, season: "2022",
	})))

	assert.NotContains(t, b.Schema(), "fga")
	assert.Equal(t, -1, b.Table().ColumnIndex("fga"))
	assert.Equal(t, 4, b.Table().Len())
}

func TestBuilderMissingTableAborts(t *testing.T) {
	g := bucksNets()
	g.skipAdvanced = "BRK"

	b := NewBuilder()
	err := b.Add("202110190MIL.html", parse(t, g))
	assert.ErrorIs(t, err, ErrTableNotFound)
	assert.Equal(t, 0, b.Table().Len())
}

func newScores(t *testing.T, games map[string]gameFixture) *pages.Store {
	t.Helper()
	store, err := pages.NewStore(filepath.Join(t.TempDir(), "scores"))
	require.NoError(t, err)
	for name, g := range games {
		require.NoError(t, store.Save(name, g.html()))
	}
	return store
}

func TestExtractorRun(t *testing.T) {
	store := newScores(t, map[string]gameFixture{
		"202110190MIL.html": bucksNets(),
		"202110190LAL.html": {away: "GSW", home: "LAL", awayPts: 121, homePts: 114, season: "2022"},
	})

	var progress []int
	e := NewExtractor(store, Options{
		ProgressEvery: 1,
		Progress:      func(done, _ int) { progress = append(progress, done) },
	}, zap.NewNop())

	table, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, table.Len())

	// Sorted by file name: the LAL game comes first.
	assert.Equal(t, "GSW", table.Get(0, "team"))
	assert.Equal(t, "MIL", table.Get(3, "team"))
	assert.Equal(t, []int{1, 2}, progress)
}

func TestExtractorAbortsOnMissingTable(t *testing.T) {
	broken := bucksNets()
	broken.skipAdvanced = "MIL"
	store := newScores(t, map[string]gameFixture{
		"202110190LAL.html": {away: "GSW", home: "LAL", awayPts: 121, homePts: 114, season: "2022"},
		"202110190MIL.html": broken,
	})

	_, err := NewExtractor(store, Options{}, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTableNotFound))
	assert.Contains(t, err.Error(), "202110190MIL.html")
}

func TestExtractorEmptyStore(t *testing.T) {
	table, err := NewExtractor(newScores(t, nil), Options{}, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}
