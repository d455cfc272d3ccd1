package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records pipeline metrics using Prometheus.
// Each Recorder owns its registry, so several can coexist (tests).
type Recorder struct {
	registry       *prometheus.Registry
	reasoningCalls *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	sourceFailures *prometheus.CounterVec
	stageLatency   *prometheus.HistogramVec
	cacheHits      prometheus.Counter
	lastPerf       prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		reasoningCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threes_reasoning_calls_total",
				Help: "Reasoning service calls by tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		fallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threes_fallbacks_total",
				Help: "Fallbacks taken by pipeline stage",
			},
			[]string{"stage", "source"},
		),
		sourceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "threes_source_failures_total",
				Help: "Feature bundle fetch failures",
			},
			[]string{"bundle"},
		),
		stageLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "threes_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"stage"},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "threes_checkpoint_hits_total",
				Help: "Candidates served from the checkpoint cache",
			},
		),
		lastPerf: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "threes_last_backfilled_perf_pct",
				Help: "Realized return of the most recent backfilled trajectory entry",
			},
		),
	}
}

// RecordReasoningCall records a reasoning call outcome (ok, error, disabled).
func (r *Recorder) RecordReasoningCall(tier, outcome string) {
	if r == nil {
		return
	}
	r.reasoningCalls.WithLabelValues(tier, outcome).Inc()
}

// RecordFallback records a degraded stage output.
func (r *Recorder) RecordFallback(stage, source string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(stage, source).Inc()
}

// RecordSourceFailure records a failed bundle fetch.
func (r *Recorder) RecordSourceFailure(bundle string) {
	if r == nil {
		return
	}
	r.sourceFailures.WithLabelValues(bundle).Inc()
}

// RecordStage records stage latency.
func (r *Recorder) RecordStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordCacheHits adds checkpoint hits.
func (r *Recorder) RecordCacheHits(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.cacheHits.Add(float64(n))
}

// RecordPerf sets the latest realized perf.
func (r *Recorder) RecordPerf(pct float64) {
	if r == nil {
		return
	}
	r.lastPerf.Set(pct)
}

// Registry exposes the underlying registry (tests, custom collectors).
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
