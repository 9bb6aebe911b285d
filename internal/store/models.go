package store

import (
	"fmt"
	"time"

	"github.com/fortuna/hoopstats/internal/dataset"
)

// Identity columns of the team-game table. Every other column of an
// extracted dataset is a statistic and is stored in the stats document.
const (
	ColSeason   = "season"
	ColDate     = "date"
	ColTeam     = "team"
	ColTeamOpp  = "team_opp"
	ColHome     = "home"
	ColHomeOpp  = "home_opp"
	ColWon      = "won"
	ColTotal    = "total"
	ColTotalOpp = "total_opp"
)

// TeamGame is one team's line for one game, paired with its opponent.
type TeamGame struct {
	ID       int64              `json:"id,omitempty" db:"id"`
	Season   string             `json:"season" db:"season"`
	GameDate *time.Time         `json:"game_date,omitempty" db:"game_date"`
	Team     string             `json:"team" db:"team"`
	TeamOpp  string             `json:"team_opp" db:"team_opp"`
	Home     int                `json:"home" db:"home"`
	Won      bool               `json:"won" db:"won"`
	Total    *float64           `json:"total,omitempty" db:"total"`
	TotalOpp *float64           `json:"total_opp,omitempty" db:"total_opp"`
	Stats    map[string]float64 `json:"stats" db:"stats"`
	LoadedAt time.Time          `json:"loaded_at,omitempty" db:"loaded_at"`
}

// TeamRecord is a team's win-loss record over a season.
type TeamRecord struct {
	Team   string  `json:"team"`
	Season string  `json:"season"`
	Games  int     `json:"games"`
	Wins   int     `json:"wins"`
	Losses int     `json:"losses"`
	Points float64 `json:"avg_points"`
}

// GameFilter narrows a team-game listing. Zero fields match everything.
type GameFilter struct {
	Season string
	Team   string
	Limit  int
}

// FromTable converts an extracted dataset into team-game rows. Missing
// statistics are left out of the stats document.
func FromTable(t *dataset.Table) ([]TeamGame, error) {
	for _, name := range []string{ColSeason, ColTeam, ColTeamOpp, ColHome, ColWon, ColTotal, ColTotalOpp} {
		if t.ColumnIndex(name) < 0 {
			return nil, fmt.Errorf("dataset has no %q column", name)
		}
	}

	identity := map[string]bool{
		ColSeason: true, ColDate: true, ColTeam: true, ColTeamOpp: true, ColHome: true,
		ColHomeOpp: true, ColWon: true, ColTotal: true, ColTotalOpp: true,
	}

	games := make([]TeamGame, 0, t.Len())
	for i, row := range t.Rows() {
		g := TeamGame{
			Season:  t.Get(i, ColSeason).(string),
			Team:    t.Get(i, ColTeam).(string),
			TeamOpp: t.Get(i, ColTeamOpp).(string),
			Home:    t.Get(i, ColHome).(int),
			Won:     t.Get(i, ColWon).(bool),
			Stats:   make(map[string]float64),
		}
		if d, ok := t.Get(i, ColDate).(time.Time); ok && !d.IsZero() {
			g.GameDate = &d
		}
		g.Total = number(t.Get(i, ColTotal))
		g.TotalOpp = number(t.Get(i, ColTotalOpp))

		for c, col := range t.Columns() {
			if identity[col.Name] || col.Kind != dataset.Number {
				continue
			}
			if _, seen := g.Stats[col.Name]; seen || dataset.IsNull(row[c]) {
				continue
			}
			g.Stats[col.Name] = row[c].(float64)
		}
		games = append(games, g)
	}
	return games, nil
}

func number(cell any) *float64 {
	v, ok := cell.(float64)
	if !ok || dataset.IsNull(v) {
		return nil
	}
	return &v
}
