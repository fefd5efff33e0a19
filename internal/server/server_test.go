package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescout-ai/codescout/internal/engine"
	"github.com/codescout-ai/codescout/internal/models"
	"github.com/codescout-ai/codescout/internal/scheduler"
)

type fakeQueryService struct {
	answer *models.CachedAnswer
	err    error
}

func (f *fakeQueryService) Answer(_ context.Context, _, _ string, _ []models.ConversationTurn) (*models.CachedAnswer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

type fakeWorker struct {
	outcome scheduler.Outcome
	err     error
}

func (f *fakeWorker) RunOnce(_ context.Context) (scheduler.Outcome, error) {
	return f.outcome, f.err
}

type fakeReportBuilder struct {
	report *models.Report
	err    error
}

func (f *fakeReportBuilder) Report(_ context.Context, projectID string, windowDays int) (*models.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := *f.report
	r.ProjectID = projectID
	r.WindowDays = windowDays
	return &r, nil
}

func newTestServer(q QueryService, w JobWorker, r ReportBuilder) *Server {
	if q == nil {
		q = &fakeQueryService{}
	}
	if w == nil {
		w = &fakeWorker{}
	}
	if r == nil {
		r = &fakeReportBuilder{report: &models.Report{}}
	}
	return New(q, w, r, nil, 0)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQueryEndpointSuccess(t *testing.T) {
	q := &fakeQueryService{answer: &models.CachedAnswer{
		Answer:  "the worker claims one job per invocation",
		Sources: []models.Source{{FileName: "scheduler.go", Similarity: 0.91, Summary: "claim loop"}},
	}}
	s := newTestServer(q, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/query", map[string]any{
		"project_id": "proj-1",
		"question":   "how are jobs claimed?",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var got models.CachedAnswer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "the worker claims one job per invocation", got.Answer)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, "scheduler.go", got.Sources[0].FileName)
}

func TestQueryEndpointValidation(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/query", map[string]any{"question": "no project"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", engine.ErrInvalidInput, http.StatusBadRequest},
		{"unindexed project", engine.ErrProjectNotIndexed, http.StatusNotFound},
		{"internal failure", engine.ErrQueryFailed, http.StatusInternalServerError},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeQueryService{err: tt.err}, nil, nil)
			rec := doJSON(t, s, http.MethodPost, "/api/query", map[string]any{
				"project_id": "proj-1",
				"question":   "q",
			})
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, rec.Body.String(), "boom", "internal causes are never exposed")
			}
		})
	}
}

func TestWorkerRunEndpoint(t *testing.T) {
	w := &fakeWorker{outcome: scheduler.Outcome{
		Status:    scheduler.OutcomeSuccess,
		JobID:     "job1",
		ProjectID: "proj-1",
	}}
	s := newTestServer(nil, w, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(scheduler.OutcomeSuccess), got["status"])
	assert.Equal(t, "job1", got["job_id"])
	assert.Equal(t, "proj-1", got["project_id"])
}

func TestWorkerRunEndpointIdleOmitsJob(t *testing.T) {
	s := newTestServer(nil, &fakeWorker{outcome: scheduler.Outcome{Status: scheduler.OutcomeIdle}}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, string(scheduler.OutcomeIdle), got["status"])
	assert.NotContains(t, got, "job_id")
}

func TestWorkerRunEndpointFailure(t *testing.T) {
	s := newTestServer(nil, &fakeWorker{err: errors.New("claim query failed")}, nil)

	rec := doJSON(t, s, http.MethodPost, "/api/worker/run", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	r := &fakeReportBuilder{report: &models.Report{
		TotalRequests: 42,
		Health:        models.HealthHealthy,
		BudgetStatus:  models.BudgetOK,
	}}
	s := newTestServer(nil, nil, r)

	rec := doJSON(t, s, http.MethodGet, "/api/projects/proj-1/report?window_days=14", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "proj-1", got.ProjectID)
	assert.Equal(t, 14, got.WindowDays)
	assert.Equal(t, 42, got.TotalRequests)
}

func TestReportEndpointRejectsBadWindow(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doJSON(t, s, http.MethodGet, "/api/projects/proj-1/report?window_days=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(nil, nil, nil)

	rec := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
