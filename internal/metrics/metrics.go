package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quantpulse/tradeaudit/internal/health"
)

// Metrics exposes the auditor's last observed run to prometheus.
// Used by serve mode; one-shot runs skip it entirely.
type Metrics struct {
	probeUp          *prometheus.GaugeVec
	signalFresh      prometheus.Gauge
	signalAgeMinutes prometheus.Gauge
	runsTotal        *prometheus.CounterVec
	lastRunTimestamp prometheus.Gauge
	recurringGaps    prometheus.Gauge
	newModels        prometheus.Gauge
}

// New creates and registers the auditor metric set
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		probeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "tradeaudit_probe_up",
			Help: "Whether the probe's collaborator was reachable on the last run (1=up)",
		}, []string{"probe"}),
		signalFresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradeaudit_signal_fresh",
			Help: "Whether the monitoring loop's latest cycle was fresh on the last run",
		}),
		signalAgeMinutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradeaudit_signal_age_minutes",
			Help: "Age of the latest monitoring cycle in minutes (-1 when unknown)",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradeaudit_runs_total",
			Help: "Health-check runs by outcome status",
		}, []string{"status"}),
		lastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradeaudit_last_run_timestamp_seconds",
			Help: "Unix time of the last completed (non-skipped) run",
		}),
		recurringGaps: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradeaudit_recurring_gaps",
			Help: "Newly-flagged recurring data gaps on the last run",
		}),
		newModels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tradeaudit_new_models",
			Help: "Catalog models available upstream but not running, per the last run",
		}),
	}
	reg.MustRegister(m.probeUp, m.signalFresh, m.signalAgeMinutes,
		m.runsTotal, m.lastRunTimestamp, m.recurringGaps, m.newModels)
	return m
}

// ObserveRun records one run's result
func (m *Metrics) ObserveRun(r *health.Result, at int64) {
	m.runsTotal.WithLabelValues(string(r.Status)).Inc()
	if r.Skipped {
		return
	}

	for _, o := range r.Probes {
		v := 0.0
		if o.OK {
			v = 1.0
		}
		m.probeUp.WithLabelValues(o.Probe).Set(v)
	}
	if r.SignalHealthy {
		m.signalFresh.Set(1)
	} else {
		m.signalFresh.Set(0)
	}
	m.signalAgeMinutes.Set(r.SignalAgeMin)
	m.lastRunTimestamp.Set(float64(at))
	m.recurringGaps.Set(float64(len(r.RecurringGaps)))
	m.newModels.Set(float64(len(r.NewModels)))
}
