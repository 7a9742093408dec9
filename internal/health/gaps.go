package health

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// GapSource yields the raw data_gaps payloads (JSON arrays of descriptor
// strings) recorded in a table on or after a cutoff date.
type GapSource interface {
	GapRows(ctx context.Context, table string, since time.Time) ([]string, error)
}

// Sentinel descriptors that mean "no gap" and are dropped on normalization
var gapSentinels = map[string]struct{}{
	"":     {},
	"none": {},
	"n/a":  {},
}

// NormalizeGap canonicalizes a gap descriptor so textual variants of the
// same gap count as one key. Returns "" for sentinel values.
func NormalizeGap(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, skip := gapSentinels[s]; skip {
		return ""
	}
	return s
}

// GapCollector accumulates a frequency count of normalized gap
// descriptors across the configured tables within a bounded window.
type GapCollector struct {
	source GapSource
	tables []string
	window time.Duration
	now    func() time.Time
}

// NewGapCollector builds a collector over the given gap source
func NewGapCollector(source GapSource, tables []string, windowDays int, now func() time.Time) *GapCollector {
	if now == nil {
		now = time.Now
	}
	return &GapCollector{
		source: source,
		tables: tables,
		window: time.Duration(windowDays) * 24 * time.Hour,
		now:    now,
	}
}

// Collect never returns an error: a failing table contributes nothing,
// and malformed rows are skipped per-record.
func (c *GapCollector) Collect(ctx context.Context) map[string]int {
	cutoff := c.now().Add(-c.window)
	counts := make(map[string]int)

	for _, table := range c.tables {
		rows, err := c.source.GapRows(ctx, table, cutoff)
		if err != nil {
			log.Warn().Err(err).Str("table", table).Msg("Gap query failed, skipping table")
			continue
		}

		for _, raw := range rows {
			var gaps []string
			if err := json.Unmarshal([]byte(raw), &gaps); err != nil {
				log.Debug().Str("table", table).Msg("Skipping malformed data_gaps row")
				continue
			}
			for _, g := range gaps {
				if norm := NormalizeGap(g); norm != "" {
					counts[norm]++
				}
			}
		}
	}

	return counts
}

// Classification splits counted gaps into newly-recurring and
// new/informational, honoring the persisted flagged set.
type Classification struct {
	// Recurring holds "descriptor (xN)" display strings for gaps that
	// crossed the repeat threshold this run.
	Recurring []string
	// RecurringKeys holds the bare descriptors behind Recurring, to be
	// merged into the flagged set before persistence.
	RecurringKeys []string
	// New holds descriptors seen below the threshold, informational only.
	New []string
}

// ClassifyGaps walks counted descriptors from most to least frequent
// (ties broken by name for determinism). A descriptor already flagged is
// suppressed from both outputs: it has been surfaced once and acted on.
func ClassifyGaps(counts map[string]int, flagged map[string]string, threshold int) Classification {
	descs := make([]string, 0, len(counts))
	for d := range counts {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool {
		if counts[descs[i]] != counts[descs[j]] {
			return counts[descs[i]] > counts[descs[j]]
		}
		return descs[i] < descs[j]
	})

	var cls Classification
	for _, d := range descs {
		if _, seen := flagged[d]; seen {
			continue
		}
		if counts[d] >= threshold {
			cls.Recurring = append(cls.Recurring, fmt.Sprintf("%s (x%d)", d, counts[d]))
			cls.RecurringKeys = append(cls.RecurringKeys, d)
		} else {
			cls.New = append(cls.New, d)
		}
	}
	return cls
}

// TopGapCounts returns the n highest-count descriptors as a diagnostic
// snapshot of the whole window.
func TopGapCounts(counts map[string]int, n int) map[string]int {
	if len(counts) <= n {
		top := make(map[string]int, len(counts))
		for d, c := range counts {
			top[d] = c
		}
		return top
	}

	descs := make([]string, 0, len(counts))
	for d := range counts {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool {
		if counts[descs[i]] != counts[descs[j]] {
			return counts[descs[i]] > counts[descs[j]]
		}
		return descs[i] < descs[j]
	})

	top := make(map[string]int, n)
	for _, d := range descs[:n] {
		top[d] = counts[d]
	}
	return top
}
