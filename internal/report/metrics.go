package report

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gotrs-io/boardcheck/internal/runner"
)

// Metrics are the gauges exported for a run. A fresh registry is used per
// run so that the textfile only holds the latest run.
type Metrics struct {
	registry  *prometheus.Registry
	scenarios *prometheus.GaugeVec
	failures  *prometheus.GaugeVec
	duration  *prometheus.HistogramVec
	lastRun   prometheus.Gauge
	runTime   prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		scenarios: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "boardcheck_scenarios",
			Help: "Scenarios in the last run by status",
		}, []string{"status"}),
		failures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "boardcheck_scenario_failures",
			Help: "Failed or errored scenarios in the last run by kind",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "boardcheck_scenario_duration_seconds",
			Help:    "Scenario duration in the last run",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"app"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boardcheck_last_run_timestamp_seconds",
			Help: "Unix time the last run started",
		}),
		runTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boardcheck_last_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
	}
	m.registry.MustRegister(m.scenarios, m.failures, m.duration, m.lastRun, m.runTime)
	return m
}

// Observe records s.
func (m *Metrics) Observe(s *runner.Summary) {
	m.scenarios.WithLabelValues(string(runner.StatusPassed)).Set(float64(s.Passed))
	m.scenarios.WithLabelValues(string(runner.StatusFailed)).Set(float64(s.Failed))
	m.scenarios.WithLabelValues(string(runner.StatusError)).Set(float64(s.Errored))

	for _, r := range s.Results {
		m.duration.WithLabelValues(r.Scenario.App).Observe(r.Duration.Seconds())
		if r.Status != runner.StatusPassed {
			m.failures.WithLabelValues(string(r.Kind)).Inc()
		}
	}
	m.lastRun.Set(float64(s.StartedAt.Unix()))
	m.runTime.Set(s.Duration.Seconds())
}

// Registry exposes the underlying registry, for serving or gathering the
// gauges of a run.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteMetrics writes the run as a node_exporter textfile.
func WriteMetrics(path string, s *runner.Summary) error {
	m := NewMetrics()
	m.Observe(s)
	return prometheus.WriteToTextfile(path, m.Registry())
}
