package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinRisk/internal/domain/models"
	"FinRisk/internal/domain/repository"
)

var _ repository.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	scoresTotal   *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	lastScore     *prometheus.GaugeVec
	lastRisk      *prometheus.GaugeVec
	lastCoef      *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
	tableRebuilds *prometheus.CounterVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		scoresTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_scores_total",
				Help: "Total number of computed scores by signal",
			},
			[]string{"signal", "degraded"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastScore: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finrisk_last_final_score",
				Help: "Last final score computed for a symbol",
			},
			[]string{"symbol"},
		),
		lastRisk: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finrisk_last_risk_value",
				Help: "Last risk value computed for a symbol",
			},
			[]string{"symbol"},
		),
		lastCoef: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finrisk_last_coefficient",
				Help: "Last DBI coefficient applied to a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finrisk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		tableRebuilds: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_table_rebuilds_total",
				Help: "Coefficient table rebuilds by result",
			},
			[]string{"result"},
		),
	}
}

// RecordScore records a computed score for a symbol.
func (r *Recorder) RecordScore(res models.ScoreResult) {
	degraded := "false"
	if res.Degraded {
		degraded = "true"
	}
	r.scoresTotal.WithLabelValues(string(res.Signal), degraded).Inc()
	r.lastScore.WithLabelValues(res.Symbol).Set(res.FinalScore)
	r.lastRisk.WithLabelValues(res.Symbol).Set(res.RiskValue)
	r.lastCoef.WithLabelValues(res.Symbol).Set(res.Coefficient)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordTableRebuild counts a coefficient table rebuild attempt.
func (r *Recorder) RecordTableRebuild(_ string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.tableRebuilds.WithLabelValues(result).Inc()
}

// Nop discards all measurements.
type Nop struct{}

var _ repository.Metrics = Nop{}

func (Nop) RecordScore(models.ScoreResult)   {}
func (Nop) RecordError(string)               {}
func (Nop) RecordLatency(string, float64)    {}
func (Nop) RecordTableRebuild(string, error) {}
