package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	degraded      *prometheus.CounterVec
	observerDrops prometheus.Counter
	errorsTotal   *prometheus.CounterVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg; tests pass a fresh
// prometheus.NewRegistry().
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foresight_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		stageFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foresight_stage_failures_total",
				Help: "Pipeline runs that failed, by the stage that was running",
			},
			[]string{"stage"},
		),
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foresight_runs_total",
				Help: "Finished pipeline runs by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		runDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "foresight_run_duration_seconds",
				Help:    "End-to-end duration of pipeline runs",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"mode"},
		),
		degraded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foresight_degraded_runs_total",
				Help: "Runs that completed with a degraded stage",
			},
			[]string{"reason"},
		),
		observerDrops: f.NewCounter(
			prometheus.CounterOpts{
				Name: "foresight_observer_dropped_events_total",
				Help: "Progress events dropped because the observer queue was full",
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "foresight_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func (r *Recorder) RecordStage(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordStageFailure(stage string) {
	r.stageFailures.WithLabelValues(stage).Inc()
}

// RecordRun counts a finished run; outcome is success, degraded or failed.
func (r *Recorder) RecordRun(mode, outcome string, seconds float64) {
	r.runsTotal.WithLabelValues(mode, outcome).Inc()
	r.runDuration.WithLabelValues(mode).Observe(seconds)
}

func (r *Recorder) RecordDegraded(reason string) {
	r.degraded.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordObserverDrop() {
	r.observerDrops.Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
