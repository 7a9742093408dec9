package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantpulse/tradeaudit/internal/store"
)

type fakeCycleSource struct {
	ts  string
	err error
}

func (f *fakeCycleSource) LatestCycle(_ context.Context, _ string) (string, error) {
	return f.ts, f.err
}

func recencyAt(source CycleSource, now time.Time) *RecencyCheck {
	return NewRecencyCheck(source, "monitor_cycles", 30*time.Minute, func() time.Time { return now })
}

func TestRecencyCheck_Fresh(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	c := recencyAt(&fakeCycleSource{ts: "2026-08-29 11:55:00"}, now)

	sig := c.Check(context.Background())

	assert.True(t, sig.Healthy)
	assert.Contains(t, sig.Message, "5m ago")
	assert.InDelta(t, 5.0, sig.AgeMin, 0.01)
}

func TestRecencyCheck_Stale(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	c := recencyAt(&fakeCycleSource{ts: "2026-08-29 11:15:00"}, now)

	sig := c.Check(context.Background())

	assert.False(t, sig.Healthy)
	assert.Contains(t, sig.Message, "stale")
	assert.Contains(t, sig.Message, "45m ago")
}

func TestRecencyCheck_NoCycles(t *testing.T) {
	c := recencyAt(&fakeCycleSource{err: store.ErrNoCycles}, time.Now())

	sig := c.Check(context.Background())

	assert.False(t, sig.Healthy)
	assert.Equal(t, "no monitor cycles found", sig.Message)
	assert.Equal(t, -1.0, sig.AgeMin)
}

func TestRecencyCheck_QueryFailureDegrades(t *testing.T) {
	c := recencyAt(&fakeCycleSource{err: errors.New("connection refused")}, time.Now())

	sig := c.Check(context.Background())

	assert.False(t, sig.Healthy)
	assert.Contains(t, sig.Message, "cycle query failed")
}

func TestRecencyCheck_UnknownFormatIsHealthy(t *testing.T) {
	c := recencyAt(&fakeCycleSource{ts: "29/08/2026 11:55"}, time.Now())

	sig := c.Check(context.Background())

	assert.True(t, sig.Healthy)
	assert.Contains(t, sig.Message, "format unknown")
	assert.Equal(t, -1.0, sig.AgeMin)
}

func TestRecencyCheck_AcceptsAlternateLayouts(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.Local)
	for _, ts := range []string{
		"2026-08-29T11:50:00",
		"2026-08-29 11:50",
	} {
		c := recencyAt(&fakeCycleSource{ts: ts}, now)
		sig := c.Check(context.Background())
		assert.True(t, sig.Healthy, "layout %q should parse fresh", ts)
	}
}
