package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/threes/backend/internal/brain"
	"github.com/wonny/threes/backend/internal/contracts"
	"github.com/wonny/threes/backend/internal/trajectory"
	"github.com/wonny/threes/backend/pkg/logger"
)

type fakeArchive struct {
	alloc  *contracts.Allocation
	ranked []contracts.Candidate
	err    error
}

func (f *fakeArchive) GetAllocation(ctx context.Context, date time.Time) (*contracts.Allocation, error) {
	return f.alloc, f.err
}

func (f *fakeArchive) GetRanking(ctx context.Context, date time.Time) ([]contracts.Candidate, error) {
	return f.ranked, f.err
}

type errStore struct{}

func (errStore) Load(ctx context.Context) (*contracts.TrajectoryLog, error) {
	return nil, errors.New("disk gone")
}

func (errStore) Save(ctx context.Context, log *contracts.TrajectoryLog) error { return nil }

func candidate(code string, src contracts.Source) contracts.Candidate {
	return contracts.Candidate{
		Instrument: contracts.Instrument{Code: code, Name: "종목" + code},
		LastPrice:  1000,
		Scores:     contracts.NeutralScoreVector(),
		Source:     src,
	}
}

func seedRun(t *testing.T, dir string) {
	t.Helper()
	run := &brain.RunResult{
		RunID:   "run-1",
		Date:    "2026-10-15",
		Success: true,
		Candidates: []contracts.Candidate{
			candidate("000001", contracts.SourceReasoning),
			candidate("000002", contracts.SourceHeuristic),
		},
		Allocation: contracts.Allocation{
			Positions:  []contracts.Position{{Code: "000001", Weight: 1, BuyPrice: 1000}},
			CashWeight: 0,
		},
	}
	require.NoError(t, brain.SaveLatestRun(dir, run))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestGetLatestRun(t *testing.T) {
	dir := t.TempDir()
	h := NewRunHandler(dir, trajectory.NewFileStore(dir), nil, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetLatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	seedRun(t, dir)
	rec = httptest.NewRecorder()
	h.GetLatestRun(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "2026-10-15", body["date"])
}

func TestGetCandidates(t *testing.T) {
	dir := t.TempDir()
	seedRun(t, dir)
	h := NewRunHandler(dir, trajectory.NewFileStore(dir), nil, logger.NewNop())

	tests := []struct {
		name  string
		query string
		count float64
	}{
		{"all", "", 2},
		{"reasoning only", "?source=reasoning", 1},
		{"no match", "?source=neutral", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.GetCandidates(rec, httptest.NewRequest(http.MethodGet, "/api/candidates"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.count, decode(t, rec)["count"])
		})
	}
}

func TestGetTrajectory(t *testing.T) {
	dir := t.TempDir()
	store := trajectory.NewFileStore(dir)
	log := &contracts.TrajectoryLog{}
	for _, d := range []string{"2026-10-13", "2026-10-14", "2026-10-15"} {
		log.Entries = append(log.Entries, contracts.TrajectoryEntry{Date: d, Strategy: "s", Status: contracts.StatusProposed})
	}
	require.NoError(t, store.Save(context.Background(), log))
	h := NewRunHandler(dir, store, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetTrajectory(rec, httptest.NewRequest(http.MethodGet, "/api/trajectory?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total   int                         `json:"total"`
		Entries []contracts.TrajectoryEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Total)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "2026-10-15", body.Entries[0].Date)
	assert.Equal(t, "2026-10-14", body.Entries[1].Date)

	rec = httptest.NewRecorder()
	h.GetTrajectory(rec, httptest.NewRequest(http.MethodGet, "/api/trajectory?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTrajectoryStats(t *testing.T) {
	dir := t.TempDir()
	store := trajectory.NewFileStore(dir)
	perf := 2.5
	log := &contracts.TrajectoryLog{Entries: []contracts.TrajectoryEntry{
		{Date: "2026-10-14", Strategy: "s", Perf: &perf, Status: contracts.StatusBackfilled},
		{Date: "2026-10-15", Strategy: "s", Status: contracts.StatusProposed},
	}}
	require.NoError(t, store.Save(context.Background(), log))
	h := NewRunHandler(dir, store, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetTrajectoryStats(rec, httptest.NewRequest(http.MethodGet, "/api/trajectory/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["entries"])
	assert.Equal(t, float64(1), body["evaluated"])
	assert.Equal(t, 2.5, body["mean_return"])
}

func TestGetTrajectory_Empty(t *testing.T) {
	dir := t.TempDir()
	h := NewRunHandler(dir, trajectory.NewFileStore(dir), nil, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetTrajectory(rec, httptest.NewRequest(http.MethodGet, "/api/trajectory", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"entries":[]`)
}

func TestGetTrajectory_StoreError(t *testing.T) {
	h := NewRunHandler(t.TempDir(), errStore{}, nil, logger.NewNop())

	rec := httptest.NewRecorder()
	h.GetTrajectory(rec, httptest.NewRequest(http.MethodGet, "/api/trajectory", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetSelection(t *testing.T) {
	alloc := &contracts.Allocation{
		Positions:  []contracts.Position{{Code: "000001", Weight: 0.5}},
		CashWeight: 0.5,
	}
	tests := []struct {
		name    string
		archive SelectionArchive
		date    string
		status  int
	}{
		{"not configured", nil, "2026-10-15", http.StatusNotFound},
		{"bad date", &fakeArchive{alloc: alloc}, "20261015", http.StatusBadRequest},
		{"missing", &fakeArchive{}, "2026-10-15", http.StatusNotFound},
		{"archive error", &fakeArchive{err: errors.New("boom")}, "2026-10-15", http.StatusInternalServerError},
		{"found", &fakeArchive{alloc: alloc, ranked: []contracts.Candidate{candidate("000001", contracts.SourceReasoning)}}, "2026-10-15", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			h := NewRunHandler(dir, trajectory.NewFileStore(dir), tt.archive, logger.NewNop())

			req := httptest.NewRequest(http.MethodGet, "/api/selections/"+tt.date, nil)
			req = mux.SetURLVars(req, map[string]string{"date": tt.date})
			rec := httptest.NewRecorder()
			h.GetSelection(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
