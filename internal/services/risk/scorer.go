package risk

import (
	"time"

	"FinRisk/internal/domain/models"
)

// BaseScore is the risk-only score: 100 at risk 0, 0 at risk 1.
func BaseScore(risk float64) float64 {
	return 100 * (1 - risk)
}

// Scorer combines a risk value and a coefficient into a final score and signal.
type Scorer struct {
	thresholds Thresholds
}

func NewScorer(t Thresholds) *Scorer { return &Scorer{thresholds: t} }

// Score fails on any non-finite operand instead of substituting a default.
func (s *Scorer) Score(symbol string, risk, coefficient float64, at time.Time) (models.ScoreResult, error) {
	if !isFinite(risk) {
		return models.ScoreResult{}, &ScoreComputationError{Operand: "risk", Value: risk}
	}
	if !isFinite(coefficient) {
		return models.ScoreResult{}, &ScoreComputationError{Operand: "coefficient", Value: coefficient}
	}
	base := BaseScore(risk)
	final := base * coefficient
	if !isFinite(final) {
		return models.ScoreResult{}, &ScoreComputationError{Operand: "final_score", Value: final}
	}
	return models.ScoreResult{
		Symbol:      symbol,
		RiskValue:   risk,
		Band:        BandOf(risk),
		BaseScore:   base,
		Coefficient: coefficient,
		FinalScore:  final,
		Signal:      s.thresholds.Classify(final),
		ComputedAt:  at,
	}, nil
}
