package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/quantpulse/tradeaudit/internal/health"
)

// LogNotifier emits the condensed payload as a structured log event.
// The default collaborator when no webhook is configured.
type LogNotifier struct{}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs the payload at a level matching its severity
func (n *LogNotifier) Notify(_ context.Context, p health.Notification) error {
	evt := log.Info()
	switch p.Status {
	case health.StatusCritical:
		evt = log.Error()
	case health.StatusWarning:
		evt = log.Warn()
	}
	evt.Str("status", string(p.Status)).
		Strs("apis_down", p.APIsDown).
		Strs("recurring_gaps", p.RecurringGaps).
		Strs("new_models", p.NewModels).
		Msg(p.Summary)
	return nil
}

// WebhookNotifier posts the condensed payload as JSON to a configured
// endpoint. A circuit breaker keeps a long-running serve loop from
// hammering a dead webhook every cycle.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewWebhookNotifier creates a webhook notifier with a bounded timeout
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "notify-webhook",
			Timeout: 10 * time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).
					Str("to", to.String()).Msg("Webhook breaker state change")
			},
		}),
	}
}

// Notify posts the payload; callers treat failures as fire-and-forget
func (n *WebhookNotifier) Notify(ctx context.Context, p health.Notification) error {
	_, err := n.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal notification: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("webhook unreachable: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("webhook rejected notification: HTTP %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}
