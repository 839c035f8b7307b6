package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tendalyze/tendalyze/internal/etl"
)

// maxUploadBytes caps CSV request bodies
const maxUploadBytes = 32 << 20

// IngestTeams handles POST /api/v1/ingest/teams with a CSV body
func (h *Handler) IngestTeams(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	inserted, skipped, err := h.ingester.LoadTeamsCSV(r.Context(), body, nil)
	if err != nil {
		respondIngestError(w, "Failed to load teams", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"inserted": inserted,
		"skipped":  skipped,
	})
}

// IngestHudl handles POST /api/v1/ingest/hudl with a CSV body. The game is
// described by query parameters.
func (h *Handler) IngestHudl(w http.ResponseWriter, r *http.Request) {
	params, err := gameParamsFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid game parameters", err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)

	result, err := h.ingester.LoadHudlCSV(r.Context(), body, params, nil)
	if err != nil {
		respondIngestError(w, "Failed to load play-by-play", err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"game_id": result.GameID,
		"plays":   result.Plays,
		"drives":  result.Drives,
	})
}

// IngestNormalize handles POST /api/v1/ingest/normalize
func (h *Handler) IngestNormalize(w http.ResponseWriter, r *http.Request) {
	batchSize := 500
	if raw := r.URL.Query().Get("batch_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid batch_size", err)
			return
		}
		batchSize = n
	}

	updated, err := h.ingester.NormalizeFormations(r.Context(), batchSize, nil)
	if err != nil {
		respondIngestError(w, "Failed to normalize formations", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

func gameParamsFromQuery(r *http.Request) (etl.GameParams, error) {
	q := r.URL.Query()

	offense, err := strconv.Atoi(q.Get("offense_team_id"))
	if err != nil {
		return etl.GameParams{}, errors.New("offense_team_id is required")
	}
	defense, err := strconv.Atoi(q.Get("defense_team_id"))
	if err != nil {
		return etl.GameParams{}, errors.New("defense_team_id is required")
	}

	params := etl.GameParams{
		OffenseTeamID: offense,
		DefenseTeamID: defense,
		Venue:         strings.TrimSpace(q.Get("venue")),
		Source:        strings.TrimSpace(q.Get("source")),
	}

	if raw := q.Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return etl.GameParams{}, errors.New("invalid date format (use YYYY-MM-DD)")
		}
		params.GameDate = &date
	}

	if params.Season, err = queryInt(r, "season"); err != nil {
		return etl.GameParams{}, errors.New("invalid season")
	}
	if params.Week, err = queryInt(r, "week"); err != nil {
		return etl.GameParams{}, errors.New("invalid week")
	}

	return params, nil
}

func respondIngestError(w http.ResponseWriter, message string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		respondError(w, http.StatusRequestEntityTooLarge, message, err)
	case errors.Is(err, etl.ErrInvalidCSV):
		respondError(w, http.StatusBadRequest, message, err)
	default:
		respondStoreError(w, message, err)
	}
}
