package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal   *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	lastClose   *prometheus.GaugeVec
	latency     *prometheus.HistogramVec
	state       *prometheus.GaugeVec
}

// New creates a recorder registered on reg, or on the default registry
// when reg is nil.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlecast_stage_runs_total",
				Help: "Stage runs by final outcome",
			},
			[]string{"stage", "outcome"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlecast_errors_total",
				Help: "Errors encountered, by kind",
			},
			[]string{"type"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlecast_last_close",
				Help: "Close of the latest analysed candle",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlecast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
		state: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlecast_stage_state",
				Help: "Current stage state (0 idle, 1 processing, 2 delivered, 3 delivery failed)",
			},
			[]string{"stage"},
		),
	}
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(stage, outcome string) {
	r.runsTotal.WithLabelValues(stage, outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastClose records the last close for a symbol.
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordState publishes the stage state as a number.
func (r *Recorder) RecordState(stage string, state int) {
	r.state.WithLabelValues(stage).Set(float64(state))
}
