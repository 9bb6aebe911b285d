package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/fortuna/hoopstats/internal/store"
	"github.com/fortuna/hoopstats/internal/store/repository"
)

// GameStore is the read side of the team-game table.
type GameStore interface {
	List(ctx context.Context, filter store.GameFilter) ([]*store.TeamGame, error)
	Record(ctx context.Context, team, season string) (*store.TeamRecord, error)
}

// SchemaSource returns the statistic columns of the latest extraction.
type SchemaSource interface {
	Schema(ctx context.Context) ([]string, error)
}

// FailureLedger holds the URLs whose fetch exhausted every retry.
type FailureLedger interface {
	Failures(ctx context.Context) (map[string]string, error)
	ClearFailures(ctx context.Context, urls ...string) error
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	games    GameStore
	schema   SchemaSource
	failures FailureLedger
	checks   map[string]HealthChecker
}

// NewHandler creates a new handler. checks maps a dependency name to its
// health check.
func NewHandler(games GameStore, schema SchemaSource, failures FailureLedger, checks map[string]HealthChecker) *Handler {
	return &Handler{games: games, schema: schema, failures: failures, checks: checks}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	respondJSON(w, status, map[string]interface{}{
		"status":       state,
		"service":      "hoopstats",
		"dependencies": deps,
	})
}

// ListGames handles GET /api/v1/games?season=&team=&limit=
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.GameFilter{
		Season: q.Get("season"),
		Team:   q.Get("team"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		filter.Limit = limit
	}

	games, err := h.games.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch games", err)
		return
	}
	if games == nil {
		games = []*store.TeamGame{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// GetTeamRecord handles GET /api/v1/teams/{team}/record?season=
func (h *Handler) GetTeamRecord(w http.ResponseWriter, r *http.Request) {
	team := strings.ToUpper(mux.Vars(r)["team"])
	season := r.URL.Query().Get("season")
	if season == "" {
		respondError(w, http.StatusBadRequest, "season is required", nil)
		return
	}

	record, err := h.games.Record(r.Context(), team, season)
	if errors.Is(err, repository.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No games found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch record", err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// GetSchema handles GET /api/v1/schema
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	columns, err := h.schema.Schema(r.Context())
	if errors.Is(err, redis.Nil) {
		respondError(w, http.StatusNotFound, "No extraction has run yet", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch schema", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"columns": columns,
		"count":   len(columns),
	})
}

// FailedFetch is one entry of the failure ledger.
type FailedFetch struct {
	URL      string     `json:"url"`
	FailedAt *time.Time `json:"failed_at,omitempty"`
	Error    string     `json:"error"`
}

// ListFailures handles GET /api/v1/failures
func (h *Handler) ListFailures(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.failures.Failures(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch failures", err)
		return
	}

	failures := make([]FailedFetch, 0, len(ledger))
	for url, note := range ledger {
		failures = append(failures, parseFailure(url, note))
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].URL < failures[j].URL })

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"failures": failures,
		"count":    len(failures),
	})
}

// ClearFailures handles DELETE /api/v1/failures?url=. Without a url every
// entry is cleared.
func (h *Handler) ClearFailures(w http.ResponseWriter, r *http.Request) {
	urls := r.URL.Query()["url"]
	if err := h.failures.ClearFailures(r.Context(), urls...); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to clear failures", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cleared": len(urls),
		"all":     len(urls) == 0,
	})
}

// parseFailure splits a ledger note of the form "time|error".
func parseFailure(url, note string) FailedFetch {
	f := FailedFetch{URL: url, Error: note}
	stamp, msg, ok := strings.Cut(note, "|")
	if !ok {
		return f
	}
	if at, err := time.Parse(time.RFC3339, stamp); err == nil {
		f.FailedAt = &at
		f.Error = msg
	}
	return f
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}

	respondJSON(w, status, response)
}
