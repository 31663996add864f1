// Package handlers exposes the planning module over HTTP.
package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/planline/internal/config"
	"github.com/aristath/planline/internal/modules/planning"
)

const dateLayout = "2006-01-02"

// Handler serves the planning API.
type Handler struct {
	service  *planning.Service
	defaults *config.PlanningConfig
	log      zerolog.Logger
}

// New creates a planning handler. defaults fill in any run parameter the
// request leaves out.
func New(service *planning.Service, defaults *config.PlanningConfig, log zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		defaults: defaults,
		log:      log.With().Str("handler", "planning").Logger(),
	}
}

// Routes mounts the planning endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/run", h.Run)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)
}

// runRequest is the POST /run body. Every field is optional; dates default
// to today/tomorrow and the rest comes from configuration.
type runRequest struct {
	DatasetDate      string   `json:"dataset_date"`
	StartDate        string   `json:"start_date"`
	HorizonDays      *int     `json:"horizon_days"`
	NonWorkingDays   *float64 `json:"non_working_days"`
	MaintenanceHours *float64 `json:"maintenance_hours"`
	MinCoverageDays  *float64 `json:"min_coverage_days"`
	Strategy         string   `json:"strategy"`
}

// Run executes a planning run synchronously and returns the full plan.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	params, err := h.buildParams(req)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.service.Run(r.Context(), params)
	if err != nil {
		if errors.Is(err, planning.ErrBadParameters) || errors.Is(err, planning.ErrNegativeStock) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Planning run failed")
		h.respondError(w, http.StatusInternalServerError, "planning run failed")
		return
	}

	h.respondJSON(w, http.StatusOK, plan)
}

// ListRuns returns recent run summaries.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	runs, err := h.service.History(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []planning.Summary{}
	}

	h.respondJSON(w, http.StatusOK, runs)
}

// GetRun returns one stored run with its allocations.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	plan, err := h.service.GetRun(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, http.StatusNotFound, "run not found")
			return
		}
		h.log.Error().Err(err).Str("run_id", id).Msg("Failed to load run")
		h.respondError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	h.respondJSON(w, http.StatusOK, plan)
}

func (h *Handler) buildParams(req runRequest) (planning.Parameters, error) {
	today := time.Now().Truncate(24 * time.Hour)

	params := planning.Parameters{
		DatasetDate:        today,
		StartDate:          today.AddDate(0, 0, 1),
		HorizonDays:        h.defaults.HorizonDays,
		NonWorkingDays:     h.defaults.NonWorkingDays,
		MaintenanceHours:   h.defaults.MaintenanceHours,
		MinCoverageDays:    h.defaults.MinCoverageDays,
		Strategy:           h.defaults.Strategy,
		AllowNegativeStock: h.defaults.AllowNegativeStock,
		StrictMinimumBatch: h.defaults.StrictMinimumBatch,
	}

	var err error
	if req.DatasetDate != "" {
		if params.DatasetDate, err = time.Parse(dateLayout, req.DatasetDate); err != nil {
			return params, errors.New("dataset_date must be YYYY-MM-DD")
		}
	}
	if req.StartDate != "" {
		if params.StartDate, err = time.Parse(dateLayout, req.StartDate); err != nil {
			return params, errors.New("start_date must be YYYY-MM-DD")
		}
	} else if req.DatasetDate != "" {
		params.StartDate = params.DatasetDate.AddDate(0, 0, 1)
	}

	if req.HorizonDays != nil {
		params.HorizonDays = *req.HorizonDays
	}
	if req.NonWorkingDays != nil {
		params.NonWorkingDays = *req.NonWorkingDays
	}
	if req.MaintenanceHours != nil {
		params.MaintenanceHours = *req.MaintenanceHours
	}
	if req.MinCoverageDays != nil {
		params.MinCoverageDays = *req.MinCoverageDays
	}
	if req.Strategy != "" {
		params.Strategy = req.Strategy
	}

	return params, nil
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, map[string]string{"error": msg})
}
