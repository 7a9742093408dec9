package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpulse/tradeaudit/internal/health"
)

func TestLogNotifier_NeverFails(t *testing.T) {
	n := NewLogNotifier()
	err := n.Notify(context.Background(), health.Notification{
		Status:  health.StatusCritical,
		Summary: "1/4 APIs healthy",
	})
	assert.NoError(t, err)
}

func TestWebhookNotifier_PostsCondensedPayload(t *testing.T) {
	var got health.Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 5*time.Second)
	err := n.Notify(context.Background(), health.Notification{
		Status:        health.StatusWarning,
		Summary:       "3/4 APIs healthy",
		APIsDown:      []string{"market-data (HTTP 503)"},
		RecurringGaps: []string{"earnings date (x3)"},
	})

	require.NoError(t, err)
	assert.Equal(t, health.StatusWarning, got.Status)
	assert.Equal(t, []string{"market-data (HTTP 503)"}, got.APIsDown)
}

func TestWebhookNotifier_RejectionIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 5*time.Second)
	err := n.Notify(context.Background(), health.Notification{Status: health.StatusOK})

	assert.ErrorContains(t, err, "HTTP 502")
}

func TestWebhookNotifier_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 5*time.Second)
	for i := 0; i < 5; i++ {
		_ = n.Notify(context.Background(), health.Notification{Status: health.StatusOK})
	}

	// After three consecutive failures the breaker stops issuing requests
	assert.Equal(t, 3, calls)
}
