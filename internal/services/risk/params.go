package risk

import (
	"fmt"

	"FinRisk/internal/domain/models"
)

const (
	DefaultCoefMin = 1.0
	DefaultCoefMax = 1.6
)

// Thresholds are the inclusive lower score bounds of each signal label.
type Thresholds struct {
	StrongBuy float64
	Buy       float64
	Neutral   float64
	Sell      float64
}

// Params configures coefficient limits and signal thresholds.
type Params struct {
	CoefMin    float64
	CoefMax    float64
	Thresholds Thresholds
}

// DefaultParams returns the stock calibration: coefficients in [1.0, 1.6]
// and signal cut-offs at 80/60/40/20.
func DefaultParams() Params {
	return Params{
		CoefMin: DefaultCoefMin,
		CoefMax: DefaultCoefMax,
		Thresholds: Thresholds{
			StrongBuy: 80,
			Buy:       60,
			Neutral:   40,
			Sell:      20,
		},
	}
}

// Validate checks limit ordering and that thresholds strictly descend.
func (p Params) Validate() error {
	if !isFinite(p.CoefMin) || !isFinite(p.CoefMax) || p.CoefMin <= 0 || p.CoefMax <= p.CoefMin {
		return fmt.Errorf("coefficient limits must satisfy 0 < min < max, got [%g, %g]", p.CoefMin, p.CoefMax)
	}
	t := p.Thresholds
	if !(t.StrongBuy > t.Buy && t.Buy > t.Neutral && t.Neutral > t.Sell) {
		return fmt.Errorf("signal thresholds must strictly descend, got %g/%g/%g/%g", t.StrongBuy, t.Buy, t.Neutral, t.Sell)
	}
	return nil
}

// ClampCoefficient bounds c to [CoefMin, CoefMax].
func (p Params) ClampCoefficient(c float64) float64 {
	return clamp(c, p.CoefMin, p.CoefMax)
}

// Classify maps a final score to its signal label.
func (t Thresholds) Classify(score float64) models.Signal {
	switch {
	case score >= t.StrongBuy:
		return models.SignalStrongBuy
	case score >= t.Buy:
		return models.SignalBuy
	case score >= t.Neutral:
		return models.SignalNeutral
	case score >= t.Sell:
		return models.SignalSell
	default:
		return models.SignalStrongSell
	}
}
