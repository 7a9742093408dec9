package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/time/rate"

	"github.com/quantpulse/tradeaudit/internal/config"
	"github.com/quantpulse/tradeaudit/internal/health"
	"github.com/quantpulse/tradeaudit/internal/notify"
	"github.com/quantpulse/tradeaudit/internal/secrets"
	"github.com/quantpulse/tradeaudit/internal/state"
	"github.com/quantpulse/tradeaudit/internal/store"
)

// app bundles everything a command needs after wiring
type app struct {
	cfg     *config.Config
	store   *store.Store
	auditor *health.Auditor
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// newApp wires the auditor from config. Only the store connection can
// fail here; it is the one setup dependency every check needs.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg.Store.DSN, cfg.Store.Timeout())
	if err != nil {
		return nil, err
	}

	creds := secrets.NewEnvProvider("TRADEAUDIT")
	limiter := rate.NewLimiter(rate.Limit(cfg.Probes.RPS), 1)
	timeout := cfg.Probes.ProbeTimeout()

	probes := []health.Probe{
		health.NewHTTPProbe(health.ProbeMarketData, cfg.Probes.MarketDataURL, timeout, limiter,
			health.WithQueryCredential(creds, cfg.Probes.MarketKeyName, "apikey")),
		health.NewHTTPProbe(health.ProbeMacroData, cfg.Probes.MacroDataURL, timeout, limiter),
		health.NewHTTPProbe(health.ProbeDisclosures, cfg.Probes.DisclosureURL, timeout, limiter,
			health.WithAcceptedStatus(health.AntiBotTolerant)),
		health.NewCLIProbe(health.ProbeLLM, cfg.Probes.LLMCommand, cfg.Probes.LLMArgs, timeout),
	}

	states, err := buildStateStore(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	var notifier health.Notifier
	switch cfg.Notify.Backend {
	case "webhook":
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL,
			time.Duration(cfg.Notify.TimeoutSecs)*time.Second)
	default:
		notifier = notify.NewLogNotifier()
	}

	var audit health.AuditSink
	if cfg.Audit.Enabled {
		audit = &storeAuditSink{store: st, table: cfg.Audit.Table}
	}

	auditor := health.NewAuditor(health.AuditorConfig{
		Probes: probes,
		Recency: health.NewRecencyCheck(st, cfg.Signal.Table,
			time.Duration(cfg.Signal.StaleMinutes)*time.Minute, nil),
		Collector: health.NewGapCollector(st, cfg.Gaps.Tables, cfg.Gaps.WindowDays, nil),
		Scanner: health.NewModelScanner(
			health.NewCLILister(cfg.Models.Command, cfg.Models.Args, cfg.Models.TrackedPrefixes,
				time.Duration(cfg.Models.TimeoutSecs)*time.Second),
			cfg.Models.Running),
		States:          states,
		Notifier:        notifier,
		Audit:           audit,
		MinIntervalDays: cfg.Throttle.MinDays,
		GapThreshold:    cfg.Gaps.Threshold,
		GapTopN:         cfg.Gaps.TopN,
		FlagTTL:         time.Duration(cfg.State.FlagTTL) * 24 * time.Hour,
	})

	return &app{cfg: cfg, store: st, auditor: auditor}, nil
}

func buildStateStore(cfg *config.Config) (health.StateStore, error) {
	switch cfg.State.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.State.RedisAddr})
		return state.NewRedisStore(client, cfg.State.RedisKey), nil
	case "file":
		return state.NewFileStore(cfg.State.Path), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}

// storeAuditSink adapts the relational store to the orchestrator's
// audit port.
type storeAuditSink struct {
	store *store.Store
	table string
}

func (s *storeAuditSink) RecordRun(ctx context.Context, r *health.Result) error {
	return s.store.RecordRun(ctx, s.table, store.AuditRow{
		ID:            r.RunID,
		RunDate:       r.RunDate,
		Status:        string(r.Status),
		Summary:       r.Summary,
		APIsOK:        r.APIsOK,
		APIsDown:      r.APIsDown,
		RecurringGaps: r.RecurringGaps,
		NewGaps:       r.NewGaps,
		NewModels:     r.NewModels,
	})
}
