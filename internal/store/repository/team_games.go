package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/fortuna/hoopstats/internal/store"
)

// ErrNotFound is returned when a query matches no rows.
var ErrNotFound = errors.New("not found")

// TeamGameRepository handles team-game data access
type TeamGameRepository struct {
	db *store.Database
}

// NewTeamGameRepository creates a new team-game repository
func NewTeamGameRepository(db *store.Database) *TeamGameRepository {
	return &TeamGameRepository{db: db}
}

// ReplaceAll swaps the whole table for games in one transaction. Readers see
// either the previous load or the new one.
func (r *TeamGameRepository) ReplaceAll(ctx context.Context, games []store.TeamGame) (err error) {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "TRUNCATE team_games RESTART IDENTITY"); err != nil {
		return fmt.Errorf("truncating team_games: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("team_games",
		"season", "game_date", "team", "team_opp", "home", "won", "total", "total_opp", "stats"))
	if err != nil {
		return fmt.Errorf("preparing copy: %w", err)
	}

	for _, g := range games {
		stats, merr := json.Marshal(g.Stats)
		if merr != nil {
			_ = stmt.Close()
			return fmt.Errorf("encoding stats for %s %s: %w", g.Team, g.Season, merr)
		}
		var date any
		if g.GameDate != nil {
			date = *g.GameDate
		}
		if _, err = stmt.ExecContext(ctx, g.Season, date, g.Team, g.TeamOpp, g.Home, g.Won,
			nullable(g.Total), nullable(g.TotalOpp), string(stats)); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copying team game: %w", err)
		}
	}

	if _, err = stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flushing copy: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns team games matching the filter, newest first.
func (r *TeamGameRepository) List(ctx context.Context, filter store.GameFilter) ([]*store.TeamGame, error) {
	query, args := listQuery(filter)

	rows, err := r.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying team games: %w", err)
	}
	defer rows.Close()

	var games []*store.TeamGame
	for rows.Next() {
		g := &store.TeamGame{}
		var (
			date            sql.NullTime
			total, totalOpp sql.NullFloat64
			stats           []byte
		)
		if err := rows.Scan(&g.ID, &g.Season, &date, &g.Team, &g.TeamOpp, &g.Home, &g.Won,
			&total, &totalOpp, &stats, &g.LoadedAt); err != nil {
			return nil, fmt.Errorf("scanning team game: %w", err)
		}
		if date.Valid {
			g.GameDate = &date.Time
		}
		if total.Valid {
			g.Total = &total.Float64
		}
		if totalOpp.Valid {
			g.TotalOpp = &totalOpp.Float64
		}
		if err := json.Unmarshal(stats, &g.Stats); err != nil {
			return nil, fmt.Errorf("decoding stats: %w", err)
		}
		games = append(games, g)
	}

	return games, rows.Err()
}

// Record returns a team's win-loss record for a season.
func (r *TeamGameRepository) Record(ctx context.Context, team, season string) (*store.TeamRecord, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE won),
			COUNT(*) FILTER (WHERE NOT won),
			COALESCE(AVG(total), 0)
		FROM team_games
		WHERE team = $1 AND season = $2
	`

	rec := &store.TeamRecord{Team: team, Season: season}
	err := r.db.DB().QueryRowContext(ctx, query, team, season).Scan(
		&rec.Games, &rec.Wins, &rec.Losses, &rec.Points)
	if err != nil {
		return nil, fmt.Errorf("querying record: %w", err)
	}
	if rec.Games == 0 {
		return nil, fmt.Errorf("no games for %s in %s: %w", team, season, ErrNotFound)
	}
	return rec, nil
}

// Count returns the number of stored team games.
func (r *TeamGameRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM team_games").Scan(&n)
	return n, err
}

func listQuery(filter store.GameFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Season != "" {
		args = append(args, filter.Season)
		where = append(where, fmt.Sprintf("season = $%d", len(args)))
	}
	if filter.Team != "" {
		args = append(args, strings.ToUpper(filter.Team))
		where = append(where, fmt.Sprintf("team = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT id, season, game_date, team, team_opp, home, won, total, total_opp, stats, loaded_at
		FROM team_games`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY game_date DESC NULLS LAST, id")

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " LIMIT $%d", len(args))

	return b.String(), args
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
