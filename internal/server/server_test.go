package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/tradeaudit/internal/health"
)

func TestHealthz_ColdStartIsUnavailable(t *testing.T) {
	s := New(":0", prometheus.NewRegistry())
	rec := httptest.NewRecorder()

	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz_WarningStillAnswers200(t *testing.T) {
	s := New(":0", prometheus.NewRegistry())
	s.SetResult(&health.Result{Status: health.StatusWarning, Summary: "3/4 APIs healthy", RunDate: "2026-08-29"})
	rec := httptest.NewRecorder()

	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "warning", body["status"])
}

func TestHealthz_CriticalIs503(t *testing.T) {
	s := New(":0", prometheus.NewRegistry())
	s.SetResult(&health.Result{Status: health.StatusCritical})
	rec := httptest.NewRecorder()

	s.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSetResult_SkippedRunsDoNotReplaceLast(t *testing.T) {
	s := New(":0", prometheus.NewRegistry())
	s.SetResult(&health.Result{Status: health.StatusOK, RunDate: "2026-08-29"})
	s.SetResult(&health.Result{Status: health.StatusSkipped, Skipped: true, RunDate: "2026-08-30"})

	rec := httptest.NewRecorder()
	s.handleState(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got health.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2026-08-29", got.RunDate)
}

func TestState_FullResultDump(t *testing.T) {
	s := New(":0", prometheus.NewRegistry())
	s.SetResult(&health.Result{
		Status:        health.StatusOK,
		RecurringGaps: []string{"earnings date (x3)"},
		GapCounts:     map[string]int{"earnings date": 3},
	})

	rec := httptest.NewRecorder()
	s.handleState(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got health.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"earnings date (x3)"}, got.RecurringGaps)
}
