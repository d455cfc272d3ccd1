package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/threes/backend/internal/api/handlers"
	"github.com/wonny/threes/backend/internal/trajectory"
	"github.com/wonny/threes/backend/pkg/logger"
)

func newTestRouter(t *testing.T, metrics http.Handler) http.Handler {
	dir := t.TempDir()
	h := handlers.NewRunHandler(dir, trajectory.NewFileStore(dir), nil, logger.NewNop())
	return NewRouter(h, metrics, logger.NewNop())
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouter_Routes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("threes_runs_total 1\n"))
	})
	r := newTestRouter(t, metrics)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/api/runs/latest", http.StatusNotFound},
		{http.MethodGet, "/api/candidates", http.StatusNotFound},
		{http.MethodGet, "/api/trajectory", http.StatusOK},
		{http.MethodGet, "/api/trajectory/stats", http.StatusOK},
		{http.MethodGet, "/api/selections/2026-10-15", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/api/trajectory", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouter_NoMetrics(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	h := recoveryMiddleware(logger.NewNop())(panicky)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
