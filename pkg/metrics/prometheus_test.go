package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"FinRisk/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordScore(models.ScoreResult{Symbol: "BTC", RiskValue: 0.475, Coefficient: 1.037, FinalScore: 54.4, Signal: models.SignalNeutral})
	r.RecordScore(models.ScoreResult{Symbol: "BTC", RiskValue: 0.5, Coefficient: 1.0, FinalScore: 50, Signal: models.SignalNeutral, Degraded: true})
	r.RecordError("invalid_price")
	r.RecordTableRebuild("BTC", nil)
	r.RecordTableRebuild("BTC", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.scoresTotal.WithLabelValues("NEUTRAL", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.scoresTotal.WithLabelValues("NEUTRAL", "true")))
	assert.Equal(t, 50.0, testutil.ToFloat64(r.lastScore.WithLabelValues("BTC")))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.lastRisk.WithLabelValues("BTC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("invalid_price")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tableRebuilds.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.tableRebuilds.WithLabelValues("error")))
}
