// Package handlers serves the persisted run artifacts over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/threes/backend/internal/audit"
	"github.com/wonny/threes/backend/internal/brain"
	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/trajectory"
	"github.com/wonny/threes/backend/pkg/logger"
)

// SelectionArchive reads archived rankings and allocations
type SelectionArchive interface {
	GetAllocation(ctx context.Context, date time.Time) (*contracts.Allocation, error)
	GetRanking(ctx context.Context, date time.Time) ([]contracts.Candidate, error)
}

// RunHandler serves run results, candidates and the trajectory
// ⭐ SSOT: 조회 API 핸들러는 이 구조체에서만
type RunHandler struct {
	stateDir string
	store    trajectory.Store
	archive  SelectionArchive
	analyzer *audit.Analyzer
	logger   *logger.Logger
}

// NewRunHandler creates a handler; archive may be nil
func NewRunHandler(stateDir string, store trajectory.Store, archive SelectionArchive, log *logger.Logger) *RunHandler {
	return &RunHandler{
		stateDir: stateDir,
		store:    store,
		archive:  archive,
		analyzer: audit.NewAnalyzer(log),
		logger:   log.WithModule("api"),
	}
}

// GetLatestRun returns latest_run.json
// GET /api/runs/latest
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.latest(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetCandidates returns the latest run's ranked candidates
// GET /api/candidates?source=reasoning
func (h *RunHandler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	run, ok := h.latest(w)
	if !ok {
		return
	}

	cands := run.Candidates
	if src := r.URL.Query().Get("source"); src != "" {
		filtered := make([]contracts.Candidate, 0, len(cands))
		for _, c := range cands {
			if string(c.Source) == src {
				filtered = append(filtered, c)
			}
		}
		cands = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":       run.Date,
		"run_id":     run.RunID,
		"count":      len(cands),
		"candidates": cands,
	})
}

// GetTrajectory returns trajectory entries, most recent first
// GET /api/trajectory?limit=10
func (h *RunHandler) GetTrajectory(w http.ResponseWriter, r *http.Request) {
	log, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load trajectory")
		respondError(w, http.StatusInternalServerError, "failed to load trajectory")
		return
	}

	limit := log.Len()
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries := log.Tail(limit)
	if entries == nil {
		entries = []contracts.TrajectoryEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":   log.Len(),
		"entries": entries,
	})
}

// GetTrajectoryStats summarizes realized performance of past decisions
// GET /api/trajectory/stats
func (h *RunHandler) GetTrajectoryStats(w http.ResponseWriter, r *http.Request) {
	log, err := h.store.Load(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load trajectory")
		respondError(w, http.StatusInternalServerError, "failed to load trajectory")
		return
	}
	respondJSON(w, http.StatusOK, h.analyzer.Analyze(log))
}

// GetSelection returns an archived allocation and ranking
// GET /api/selections/{date}
func (h *RunHandler) GetSelection(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		respondError(w, http.StatusNotFound, "selection archive not configured")
		return
	}
	date, err := time.Parse(contracts.DateLayout, mux.Vars(r)["date"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	alloc, err := h.archive.GetAllocation(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load allocation")
		respondError(w, http.StatusInternalServerError, "failed to load selection")
		return
	}
	if alloc == nil {
		respondError(w, http.StatusNotFound, "no selection for date")
		return
	}
	ranked, err := h.archive.GetRanking(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load ranking")
		respondError(w, http.StatusInternalServerError, "failed to load selection")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":       contracts.FormatDate(date),
		"allocation": alloc,
		"candidates": ranked,
	})
}

func (h *RunHandler) latest(w http.ResponseWriter) (*brain.RunResult, bool) {
	run, found, err := brain.LoadLatestRun(h.stateDir)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest run")
		respondError(w, http.StatusInternalServerError, "failed to load latest run")
		return nil, false
	}
	if !found {
		respondError(w, http.StatusNotFound, "no run yet")
		return nil, false
	}
	return run, true
}
