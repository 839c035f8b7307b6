package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tendalyze/tendalyze/internal/etl"
	"github.com/tendalyze/tendalyze/internal/service"
	"github.com/tendalyze/tendalyze/internal/store"
)

// TeamReader is the team lookup surface used by the handlers
type TeamReader interface {
	List(ctx context.Context) ([]*store.Team, error)
	Get(ctx context.Context, teamID int) (*store.Team, error)
}

// GameReader is the game query surface used by the handlers
type GameReader interface {
	GamesBySeasonWeek(ctx context.Context, season int, week *int) ([]*service.GameSummary, error)
	TeamGames(ctx context.Context, teamID int, limit int) ([]*service.GameSummary, error)
	Get(ctx context.Context, gameID int) (*service.GameSummary, error)
	Plays(ctx context.Context, gameID int) ([]*store.Play, error)
	Drives(ctx context.Context, gameID int) ([]*service.DriveWithPlays, error)
	Summary(ctx context.Context, gameID int) (*service.GameStatSummary, error)
	Play(ctx context.Context, playID int) (*store.PlayDetail, error)
}

// TendencyReader builds formation tendency reports
type TendencyReader interface {
	Formations(ctx context.Context, teamID int, season *int) (*service.TendencyReport, error)
}

// Ingester loads CSV exports
type Ingester interface {
	LoadTeamsCSV(ctx context.Context, r io.Reader, reporter etl.Reporter) (int, int, error)
	LoadHudlCSV(ctx context.Context, r io.Reader, params etl.GameParams, reporter etl.Reporter) (etl.HudlResult, error)
	NormalizeFormations(ctx context.Context, batchSize int, reporter etl.Reporter) (int, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	db         HealthChecker
	redis      HealthChecker
	teams      TeamReader
	games      GameReader
	tendencies TendencyReader
	ingester   Ingester
	version    string
}

// NewHandler creates a new handler
func NewHandler(db HealthChecker, teams TeamReader, games GameReader, tendencies TendencyReader, ingester Ingester, version string) *Handler {
	return &Handler{
		db:         db,
		teams:      teams,
		games:      games,
		tendencies: tendencies,
		ingester:   ingester,
		version:    version,
	}
}

// WithRedis adds Redis to the health check. Without it /health reports
// Redis as disabled.
func (h *Handler) WithRedis(redis HealthChecker) *Handler {
	h.redis = redis
	return h
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "Database unavailable", err)
		return
	}

	redisStatus := "disabled"
	if h.redis != nil {
		if err := h.redis.HealthCheck(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "Redis unavailable", err)
			return
		}
		redisStatus = "ok"
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "tendalyze",
		"version": h.version,
		"redis":   redisStatus,
	})
}

// GetTeams returns all teams
func (h *Handler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch teams", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

// GetTeam returns a specific team by ID
func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	team, err := h.teams.Get(r.Context(), teamID)
	if err != nil {
		respondStoreError(w, "Failed to fetch team", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"team": team})
}

// GetTeamGames returns a team's most recent games
func (h *Handler) GetTeamGames(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	limitStr := r.URL.Query().Get("limit")
	limit := 20 // default
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	games, err := h.games.TeamGames(r.Context(), teamID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch team games", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// GetTeamTendencies returns a team's offensive formation tendencies
func (h *Handler) GetTeamTendencies(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "teamID")
	if !ok {
		return
	}

	season, err := queryInt(r, "season")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid season", err)
		return
	}

	report, err := h.tendencies.Formations(r.Context(), teamID, season)
	if err != nil {
		respondStoreError(w, "Failed to build tendencies", err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetGames returns the games of a season, optionally for one week
func (h *Handler) GetGames(w http.ResponseWriter, r *http.Request) {
	season, err := queryInt(r, "season")
	if err != nil || season == nil {
		respondError(w, http.StatusBadRequest, "A numeric season is required", err)
		return
	}

	week, err := queryInt(r, "week")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid week", err)
		return
	}

	games, err := h.games.GamesBySeasonWeek(r.Context(), *season, week)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch games", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"games": games,
		"count": len(games),
	})
}

// GetGame returns a specific game by ID
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	game, err := h.games.Get(r.Context(), gameID)
	if err != nil {
		respondStoreError(w, "Failed to fetch game", err)
		return
	}

	respondJSON(w, http.StatusOK, game)
}

// GetGamePlays returns every play of a game
func (h *Handler) GetGamePlays(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	plays, err := h.games.Plays(r.Context(), gameID)
	if err != nil {
		respondStoreError(w, "Failed to fetch plays", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"plays": plays,
		"count": len(plays),
	})
}

// GetGameDrives returns every drive of a game with its plays
func (h *Handler) GetGameDrives(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	drives, err := h.games.Drives(r.Context(), gameID)
	if err != nil {
		respondStoreError(w, "Failed to fetch drives", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"drives": drives,
		"count":  len(drives),
	})
}

// GetGameSummary returns per-offense totals for a game
func (h *Handler) GetGameSummary(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathID(w, r, "gameID")
	if !ok {
		return
	}

	summary, err := h.games.Summary(r.Context(), gameID)
	if err != nil {
		respondStoreError(w, "Failed to summarize game", err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// GetPlay returns a play with its drive, game and teams
func (h *Handler) GetPlay(w http.ResponseWriter, r *http.Request) {
	playID, ok := pathID(w, r, "playID")
	if !ok {
		return
	}

	detail, err := h.games.Play(r.Context(), playID)
	if err != nil {
		respondStoreError(w, "Failed to fetch play", err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// pathID parses a positive integer route variable, writing a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid "+name, err)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// statusFor maps domain and constraint errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, etl.ErrSameTeam), errors.Is(err, etl.ErrNoTeamRef):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDriveTeamMismatch):
		return http.StatusUnprocessableEntity
	case store.IsUniqueViolation(err):
		return http.StatusConflict
	case store.IsForeignKeyViolation(err), store.IsNotNullViolation(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondStoreError picks the status from err and names the violated
// constraint when the driver reported one.
func respondStoreError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)

	constraint := store.ConstraintName(err)
	if constraint == "" {
		respondError(w, status, message, err)
		return
	}

	respondJSON(w, status, map[string]interface{}{
		"error":      message,
		"status":     status,
		"details":    err.Error(),
		"constraint": constraint,
	})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}
