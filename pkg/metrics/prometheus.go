package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	passDuration   *prometheus.HistogramVec
	signalsEmitted *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	outstanding    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proprecon_runs_total",
				Help: "Total reconciliation runs by result",
			},
			[]string{"result"},
		),
		runDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proprecon_run_duration_seconds",
				Help:    "Duration of reconciliation runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		passDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "proprecon_pass_duration_seconds",
				Help:    "Duration of individual detection passes",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"pass"},
		),
		signalsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proprecon_signals_emitted_total",
				Help: "Signals emitted by type and severity",
			},
			[]string{"type", "severity"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "proprecon_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		outstanding: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "proprecon_signals_outstanding",
				Help: "Outstanding signals by type after the latest run",
			},
			[]string{"type"},
		),
	}
}

// RecordRun records a completed run and its duration.
func (r *Recorder) RecordRun(result string, seconds float64) {
	r.runsTotal.WithLabelValues(result).Inc()
	r.runDuration.WithLabelValues(result).Observe(seconds)
}

// RecordPass records a detection pass duration.
func (r *Recorder) RecordPass(pass string, seconds float64) {
	r.passDuration.WithLabelValues(pass).Observe(seconds)
}

// RecordSignal records one emitted signal.
func (r *Recorder) RecordSignal(sigType, severity string) {
	r.signalsEmitted.WithLabelValues(sigType, severity).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// SetOutstanding updates the outstanding-signals gauge for a type.
func (r *Recorder) SetOutstanding(sigType string, n float64) {
	r.outstanding.WithLabelValues(sigType).Set(n)
}
