package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantpulse/tradeaudit/internal/store"
)

// CycleSource yields the most recent monitoring-cycle timestamp as the
// raw string the pipeline recorded. Implementations return
// store.ErrNoCycles when no cycle has ever completed.
type CycleSource interface {
	LatestCycle(ctx context.Context, table string) (string, error)
}

// Accepted timestamp layouts, tried in order; the pipeline has written
// several shapes over its lifetime.
var cycleLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// RecencySignal is the degraded-friendly output of the recency check:
// it always carries a verdict and a human cause, never an error.
type RecencySignal struct {
	Healthy bool
	Message string
	AgeMin  float64 // -1 when the age could not be determined
}

// RecencyCheck classifies the monitoring loop's most recent cycle as
// fresh or stale against a fixed threshold.
type RecencyCheck struct {
	source CycleSource
	table  string
	stale  time.Duration
	now    func() time.Time
}

// NewRecencyCheck builds a recency check over the given cycle source
func NewRecencyCheck(source CycleSource, table string, stale time.Duration, now func() time.Time) *RecencyCheck {
	if now == nil {
		now = time.Now
	}
	return &RecencyCheck{source: source, table: table, stale: stale, now: now}
}

// Check never returns an error: store and parse failures degrade to a
// descriptive signal.
func (c *RecencyCheck) Check(ctx context.Context) RecencySignal {
	raw, err := c.source.LatestCycle(ctx, c.table)
	if err != nil {
		if errors.Is(err, store.ErrNoCycles) {
			return RecencySignal{Healthy: false, Message: "no monitor cycles found", AgeMin: -1}
		}
		return RecencySignal{Healthy: false, Message: fmt.Sprintf("cycle query failed: %v", err), AgeMin: -1}
	}

	var last time.Time
	parsed := false
	for _, layout := range cycleLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			last = t
			parsed = true
			break
		}
	}
	if !parsed {
		// An unreadable timestamp proves the loop wrote something; do
		// not fail the whole run over a format drift.
		return RecencySignal{
			Healthy: true,
			Message: fmt.Sprintf("last cycle timestamp format unknown: %q", raw),
			AgeMin:  -1,
		}
	}

	age := c.now().Sub(last)
	ageMin := age.Minutes()
	if age > c.stale {
		return RecencySignal{
			Healthy: false,
			Message: fmt.Sprintf("monitoring loop stale: last cycle %.0fm ago", ageMin),
			AgeMin:  ageMin,
		}
	}
	return RecencySignal{
		Healthy: true,
		Message: fmt.Sprintf("last cycle %.0fm ago", ageMin),
		AgeMin:  ageMin,
	}
}
