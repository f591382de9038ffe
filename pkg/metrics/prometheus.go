package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ingested     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	activeLevels *prometheus.GaugeVec
	confluence   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ingested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_records_ingested_total",
				Help: "Total number of extraction records accepted, by outcome",
			},
			[]string{"source", "kind", "outcome"},
		),
		rejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_records_rejected_total",
				Help: "Total number of extraction records rejected",
			},
			[]string{"reason"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conflux_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		activeLevels: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "conflux_active_levels",
				Help: "Number of non-expired price levels tracked per symbol",
			},
			[]string{"symbol"},
		),
		confluence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "conflux_score",
				Help: "Last computed confluence score per symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conflux_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordIngest records an accepted extraction record.
func (r *Recorder) RecordIngest(source, kind, outcome string) {
	r.ingested.WithLabelValues(source, kind, outcome).Inc()
}

// RecordReject records a rejected extraction record.
func (r *Recorder) RecordReject(reason string) {
	r.rejected.WithLabelValues(reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordActiveLevels records the live level count for a symbol.
func (r *Recorder) RecordActiveLevels(symbol string, n int) {
	r.activeLevels.WithLabelValues(symbol).Set(float64(n))
}

// RecordConfluence records the last computed score for a symbol.
func (r *Recorder) RecordConfluence(symbol string, score float64) {
	r.confluence.WithLabelValues(symbol).Set(score)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
