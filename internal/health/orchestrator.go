package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StateStore persists the RunState between invocations. Save must be
// atomic: a crashed run leaves the previous state intact.
type StateStore interface {
	Load(ctx context.Context) (*RunState, error)
	Save(ctx context.Context, state *RunState) error
}

// Notifier receives the condensed payload of a completed run. It is
// fire-and-forget: its failure never alters the returned result.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// AuditSink records one row per completed run, also fire-and-forget
type AuditSink interface {
	RecordRun(ctx context.Context, r *Result) error
}

// Probes whose failure makes the whole run critical: the pipeline cannot
// produce signals without market data or its LLM tooling.
var criticalProbes = map[string]bool{
	ProbeMarketData: true,
	ProbeLLM:        true,
}

// Auditor ties the health checks together: throttling, probing,
// classification, persistence, and hand-off to collaborators. It holds
// no state between calls; everything lives in the injected StateStore.
type Auditor struct {
	probes    []Probe
	recency   *RecencyCheck
	collector *GapCollector
	scanner   *ModelScanner
	states    StateStore
	notifier  Notifier
	audit     AuditSink // nil disables audit rows

	minInterval time.Duration
	threshold   int
	topN        int
	flagTTL     time.Duration
	now         func() time.Time
}

// AuditorConfig collects the orchestrator's dependencies and knobs
type AuditorConfig struct {
	Probes    []Probe
	Recency   *RecencyCheck
	Collector *GapCollector
	Scanner   *ModelScanner
	States    StateStore
	Notifier  Notifier
	Audit     AuditSink

	MinIntervalDays int
	GapThreshold    int
	GapTopN         int
	FlagTTL         time.Duration
	Now             func() time.Time
}

// NewAuditor builds the health orchestrator
func NewAuditor(cfg AuditorConfig) *Auditor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	threshold := cfg.GapThreshold
	if threshold < 1 {
		threshold = 2
	}
	topN := cfg.GapTopN
	if topN < 1 {
		topN = 10
	}
	return &Auditor{
		probes:      cfg.Probes,
		recency:     cfg.Recency,
		collector:   cfg.Collector,
		scanner:     cfg.Scanner,
		states:      cfg.States,
		notifier:    cfg.Notifier,
		audit:       cfg.Audit,
		minInterval: time.Duration(cfg.MinIntervalDays) * 24 * time.Hour,
		threshold:   threshold,
		topN:        topN,
		flagTTL:     cfg.FlagTTL,
		now:         now,
	}
}

// Run executes one health-check pass. The only error it returns is a
// missing state store wiring; every check degrades instead of failing.
// A throttled invocation returns a skipped result without touching the
// probes or the persisted state.
func (a *Auditor) Run(ctx context.Context, force bool) (*Result, error) {
	if a.states == nil {
		return nil, fmt.Errorf("no state store configured")
	}

	start := a.now()
	runDate := start.Format("2006-01-02")

	state, err := a.states.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("State load failed, starting from empty state")
		state = NewRunState()
	}
	if state.FlaggedGaps == nil {
		state.FlaggedGaps = make(map[string]string)
	}

	if pruned := state.PruneFlags(start, a.flagTTL); pruned > 0 {
		log.Info().Int("pruned", pruned).Msg("Expired flagged gaps, eligible to re-alert")
	}

	if skipped := a.throttled(force, state, start); skipped != nil {
		return skipped, nil
	}

	log.Info().Bool("force", force).Str("run_date", runDate).Msg("Starting health check")

	outcomes := RunProbes(ctx, a.probes)
	signal := a.recency.Check(ctx)
	counts := a.collector.Collect(ctx)
	cls := ClassifyGaps(counts, state.FlaggedGaps, a.threshold)
	models := a.scanner.Scan(ctx)

	result := &Result{
		RunID:         uuid.NewString(),
		RunDate:       runDate,
		Probes:        outcomes,
		SignalHealthy: signal.Healthy,
		SignalMessage: signal.Message,
		SignalAgeMin:  signal.AgeMin,
		RecurringGaps: cls.Recurring,
		NewGaps:       cls.New,
		NewModels:     models,
		GapCounts:     TopGapCounts(counts, a.topN),
	}
	for _, o := range outcomes {
		if o.OK {
			result.APIsOK = append(result.APIsOK, o.Tag())
		} else {
			result.APIsDown = append(result.APIsDown, o.Tag())
		}
	}
	result.Status = deriveStatus(outcomes, signal)
	result.Summary = buildSummary(result)
	result.ElapsedMS = a.now().Sub(start).Milliseconds()

	// Merge newly-flagged descriptors before the single state write so
	// the alert fires exactly once across the descriptor's lifetime.
	for _, desc := range cls.RecurringKeys {
		state.FlaggedGaps[desc] = runDate
	}
	state.LastRunDate = runDate
	state.LastResult = result

	if err := a.states.Save(ctx, state); err != nil {
		log.Error().Err(err).Msg("State save failed; next run may repeat this one")
	}

	if a.audit != nil {
		if err := a.audit.RecordRun(ctx, result); err != nil {
			log.Warn().Err(err).Msg("Audit row write failed")
		}
	}
	if a.notifier != nil {
		if err := a.notifier.Notify(ctx, result.Condense()); err != nil {
			log.Warn().Err(err).Msg("Notification failed")
		}
	}

	log.Info().Str("status", string(result.Status)).Str("summary", result.Summary).
		Int("apis_down", len(result.APIsDown)).Int("recurring_gaps", len(result.RecurringGaps)).
		Msg("Health check completed")

	return result, nil
}

// throttled returns a skipped result when the run is not yet due
func (a *Auditor) throttled(force bool, state *RunState, now time.Time) *Result {
	if force || state.LastRunDate == "" || a.minInterval <= 0 {
		return nil
	}
	last, err := time.Parse("2006-01-02", state.LastRunDate)
	if err != nil {
		return nil
	}
	elapsed := now.Sub(last)
	if elapsed >= a.minInterval {
		return nil
	}

	next := last.Add(a.minInterval).Format("2006-01-02")
	log.Info().Str("last_run", state.LastRunDate).Str("next_due", next).Msg("Health check not due, skipping")
	return &Result{
		RunDate: now.Format("2006-01-02"),
		Status:  StatusSkipped,
		Skipped: true,
		Summary: fmt.Sprintf("skipped: last run %s, next due %s", state.LastRunDate, next),
	}
}

// deriveStatus applies the severity rules in order, first match wins
func deriveStatus(outcomes []Outcome, signal RecencySignal) Status {
	anyDown := false
	for _, o := range outcomes {
		if o.OK {
			continue
		}
		if criticalProbes[o.Probe] {
			return StatusCritical
		}
		anyDown = true
	}
	if anyDown || !signal.Healthy {
		return StatusWarning
	}
	return StatusOK
}

// buildSummary renders the single human line consumers key off
func buildSummary(r *Result) string {
	parts := []string{
		fmt.Sprintf("%d/%d APIs healthy", len(r.APIsOK), len(r.APIsOK)+len(r.APIsDown)),
	}
	if r.SignalHealthy {
		parts = append(parts, "monitoring loop fresh")
	} else {
		parts = append(parts, r.SignalMessage)
	}
	if n := len(r.RecurringGaps); n > 0 {
		parts = append(parts, fmt.Sprintf("%d recurring gap%s", n, plural(n)))
	}
	if n := len(r.NewGaps); n > 0 {
		parts = append(parts, fmt.Sprintf("%d new gap%s", n, plural(n)))
	}
	if n := len(r.NewModels); n > 0 {
		parts = append(parts, fmt.Sprintf("%d new model%s available", n, plural(n)))
	}
	return strings.Join(parts, "; ")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
