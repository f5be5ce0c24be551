// Package metrics holds the Prometheus collectors of a pipegrid process.
//
// Collectors live on a dedicated registry so tests and multiple apps in one
// process never collide on the global default registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pipegrid"

// Metrics records stage and run outcomes. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageRows     *prometheus.GaugeVec
	runs          *prometheus.CounterVec
	inFlight      prometheus.Gauge
}

// New creates the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stageRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage executions by final status.",
		}, []string{"status"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Stage runner duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"runner"}),
		stageRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_rows",
			Help:      "Rows produced by the last execution of a stage.",
		}, []string{"stage"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"status"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stages_in_flight",
			Help:      "Stages currently executing.",
		}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StageStarted increments the in-flight gauge.
func (m *Metrics) StageStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// StageFinished records the outcome of a stage that was started.
func (m *Metrics) StageFinished(stage, runner, status string, elapsed time.Duration, rows int) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.stageRuns.WithLabelValues(status).Inc()
	m.stageDuration.WithLabelValues(runner).Observe(elapsed.Seconds())
	if status == "completed" {
		m.stageRows.WithLabelValues(stage).Set(float64(rows))
	}
}

// StageSkipped counts a stage that never ran.
func (m *Metrics) StageSkipped() {
	if m == nil {
		return
	}
	m.stageRuns.WithLabelValues("skipped").Inc()
}

// RunFinished counts a finished pipeline run.
func (m *Metrics) RunFinished(ok bool) {
	if m == nil {
		return
	}
	status := "succeeded"
	if !ok {
		status = "failed"
	}
	m.runs.WithLabelValues(status).Inc()
}
