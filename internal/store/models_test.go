package store

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/hoopstats/internal/dataset"
)

func teamGameTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl := dataset.NewTable([]dataset.Column{
		{Name: "pts", Kind: dataset.Number},
		{Name: "fg%", Kind: dataset.Number},
		{Name: ColTeam, Kind: dataset.Text},
		{Name: ColTotal, Kind: dataset.Number},
		{Name: ColHome, Kind: dataset.Integer},
		{Name: "pts_opp", Kind: dataset.Number},
		{Name: "fg%_opp", Kind: dataset.Number},
		{Name: ColTeamOpp, Kind: dataset.Text},
		{Name: ColTotalOpp, Kind: dataset.Number},
		{Name: ColHomeOpp, Kind: dataset.Integer},
		{Name: ColSeason, Kind: dataset.Text},
		{Name: ColDate, Kind: dataset.Date},
		{Name: ColWon, Kind: dataset.Bool},
	})
	date := time.Date(2021, 10, 19, 0, 0, 0, 0, time.UTC)
	require.NoError(t, tbl.Append(dataset.Row{104.0, 0.41, "BRK", 104.0, 0, 127.0, math.NaN(), "MIL", 127.0, 1, "2022", date, false}))
	require.NoError(t, tbl.Append(dataset.Row{127.0, math.NaN(), "MIL", 127.0, 1, 104.0, 0.41, "BRK", 104.0, 0, "2022", time.Time{}, true}))
	return tbl
}

func TestFromTable(t *testing.T) {
	games, err := FromTable(teamGameTable(t))
	require.NoError(t, err)
	require.Len(t, games, 2)

	brk := games[0]
	assert.Equal(t, "BRK", brk.Team)
	assert.Equal(t, "MIL", brk.TeamOpp)
	assert.Equal(t, "2022", brk.Season)
	assert.Equal(t, 0, brk.Home)
	assert.False(t, brk.Won)
	require.NotNil(t, brk.GameDate)
	assert.Equal(t, 19, brk.GameDate.Day())
	require.NotNil(t, brk.TotalOpp)
	assert.Equal(t, 127.0, *brk.TotalOpp)
	assert.Equal(t, map[string]float64{"pts": 104, "fg%": 0.41, "pts_opp": 127}, brk.Stats)

	mil := games[1]
	assert.Nil(t, mil.GameDate)
	assert.True(t, mil.Won)
	assert.NotContains(t, mil.Stats, "fg%")
	assert.NotContains(t, mil.Stats, ColTotal)
}

func TestFromTableRequiresIdentityColumns(t *testing.T) {
	tbl := dataset.NewTable([]dataset.Column{{Name: "pts", Kind: dataset.Number}})
	_, err := FromTable(tbl)
	assert.Error(t, err)
}
