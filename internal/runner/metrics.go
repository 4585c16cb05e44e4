package runner

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks report runs on a dedicated registry
type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	duration   prometheus.Histogram
	queueDepth prometheus.Gauge
	unresolved prometheus.Counter
	lastRun    prometheus.Gauge
}

// NewMetrics creates and registers the runner metrics
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bonus_report_runs_total",
			Help: "Report runs by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bonus_report_run_duration_seconds",
			Help:    "Wall time of a report run.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bonus_report_queue_depth",
			Help: "Runs waiting in the queue.",
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bonus_report_unresolved_budgets_total",
			Help: "Report rows without a resolvable budget record.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bonus_report_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
	m.registry.MustRegister(m.runs, m.duration, m.queueDepth, m.unresolved, m.lastRun)
	return m
}

// Registry exposes the registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(status string, elapsed time.Duration, unresolved int, now time.Time) {
	m.runs.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
	m.unresolved.Add(float64(unresolved))
	if status == "succeeded" {
		m.lastRun.Set(float64(now.Unix()))
	}
}

func (m *Metrics) setQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// WriteTextfile writes the metrics in the node-exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
