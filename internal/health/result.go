package health

import "time"

// Status is the overall verdict of one health run
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusSkipped  Status = "skipped"
)

// Outcome is the verdict of a single reachability probe
type Outcome struct {
	Probe   string        `json:"probe"`
	OK      bool          `json:"ok"`
	Detail  string        `json:"detail"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Tag renders the outcome as the short display form used in summaries
// and notifications, e.g. "market-data (HTTP 503)".
func (o Outcome) Tag() string {
	if o.Detail == "" {
		return o.Probe
	}
	return o.Probe + " (" + o.Detail + ")"
}

// Result is the full outcome of one health-check run
type Result struct {
	RunID         string         `json:"run_id"`
	RunDate       string         `json:"run_date"`
	Status        Status         `json:"status"`
	Skipped       bool           `json:"skipped,omitempty"`
	Summary       string         `json:"summary"`
	APIsOK        []string       `json:"apis_ok"`
	APIsDown      []string       `json:"apis_down"`
	Probes        []Outcome      `json:"probes,omitempty"`
	SignalHealthy bool           `json:"signal_healthy"`
	SignalMessage string         `json:"signal_message"`
	SignalAgeMin  float64        `json:"signal_age_minutes"` // -1 when unknown
	RecurringGaps []string       `json:"recurring_gaps"`
	NewGaps       []string       `json:"new_gaps"`
	NewModels     []string       `json:"new_models"`
	GapCounts     map[string]int `json:"gap_counts"`
	ElapsedMS     int64          `json:"elapsed_ms"`
}

// Notification is the condensed payload handed to the notification
// collaborator: a strict subset of Result.
type Notification struct {
	Status        Status   `json:"status"`
	Summary       string   `json:"summary"`
	APIsDown      []string `json:"apis_down"`
	NewModels     []string `json:"new_models"`
	RecurringGaps []string `json:"recurring_gaps"`
}

// Condense extracts the notification payload from a result
func (r *Result) Condense() Notification {
	return Notification{
		Status:        r.Status,
		Summary:       r.Summary,
		APIsDown:      r.APIsDown,
		NewModels:     r.NewModels,
		RecurringGaps: r.RecurringGaps,
	}
}

// RunState is the persisted record carried between runs. It is owned by
// the orchestrator: read once at run start, written once at run end.
type RunState struct {
	// LastRunDate is the calendar date ("2006-01-02") of the last
	// completed, non-skipped run.
	LastRunDate string `json:"last_run_date"`
	// FlaggedGaps maps a normalized gap descriptor to the date it was
	// first surfaced as recurring. A flagged descriptor is suppressed
	// from future output until its entry expires.
	FlaggedGaps map[string]string `json:"flagged_gaps"`
	// LastResult is a full copy of the most recent result, kept for
	// inspection.
	LastResult *Result `json:"last_result,omitempty"`
}

// NewRunState returns an empty state for a first run
func NewRunState() *RunState {
	return &RunState{FlaggedGaps: make(map[string]string)}
}

// PruneFlags drops flagged-gap entries older than ttl, allowing a gap
// that recurs long after remediation to alert again. A zero ttl keeps
// every entry forever. Returns the number of entries dropped.
func (s *RunState) PruneFlags(now time.Time, ttl time.Duration) int {
	if ttl <= 0 || len(s.FlaggedGaps) == 0 {
		return 0
	}
	dropped := 0
	for desc, flagged := range s.FlaggedGaps {
		t, err := time.Parse("2006-01-02", flagged)
		if err != nil || now.Sub(t) > ttl {
			delete(s.FlaggedGaps, desc)
			dropped++
		}
	}
	return dropped
}
