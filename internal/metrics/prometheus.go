package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects pipeline metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry      *prometheus.Registry
	fetchAttempts *prometheus.CounterVec
	seriesLength  *prometheus.GaugeVec
	generations   *prometheus.CounterVec
	uploads       *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastRun       prometheus.Gauge
}

// New creates a recorder on its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetchAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macroagent_fetch_attempts_total",
				Help: "HTTP attempts against statistics APIs by outcome",
			},
			[]string{"source", "outcome"},
		),
		seriesLength: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "macroagent_series_observations",
				Help: "Observation count of the last fetch per series",
			},
			[]string{"source", "series"},
		),
		generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macroagent_generations_total",
				Help: "Report and summary generations by persona, kind and outcome",
			},
			[]string{"persona", "kind", "outcome"},
		),
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "macroagent_uploads_total",
				Help: "Artifact uploads by outcome",
			},
			[]string{"outcome"},
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "macroagent_run_duration_seconds",
				Help:    "Duration of full pipeline runs",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "macroagent_last_run_timestamp_seconds",
				Help: "Unix time of the last completed run",
			},
		),
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordFetchAttempt records one HTTP attempt against a source.
func (r *Recorder) RecordFetchAttempt(source string, ok bool) {
	if r == nil {
		return
	}
	r.fetchAttempts.WithLabelValues(source, outcome(ok)).Inc()
}

// RecordSeriesLength records how many observations a series returned.
func (r *Recorder) RecordSeriesLength(source, series string, n int) {
	if r == nil {
		return
	}
	r.seriesLength.WithLabelValues(source, series).Set(float64(n))
}

// RecordGeneration records a report ("report") or summary ("summary") call.
func (r *Recorder) RecordGeneration(persona, kind string, ok bool) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(persona, kind, outcome(ok)).Inc()
}

func (r *Recorder) RecordUpload(ok bool) {
	if r == nil {
		return
	}
	r.uploads.WithLabelValues(outcome(ok)).Inc()
}

// RecordRun records the duration of a finished run.
func (r *Recorder) RecordRun(d time.Duration) {
	if r == nil {
		return
	}
	r.runDuration.Observe(d.Seconds())
	r.lastRun.SetToCurrentTime()
}

// Handler exposes the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
