package risk

import (
	"math"

	"FinRisk/internal/domain/models"
)

// ValidateBounds checks that both bounds are finite, positive and ordered.
func ValidateBounds(b models.SymbolBounds) error {
	if !isFinite(b.MinPrice) || !isFinite(b.MaxPrice) || b.MinPrice <= 0 || b.MaxPrice <= b.MinPrice {
		return &InvalidBoundsError{Symbol: b.Symbol, MinPrice: b.MinPrice, MaxPrice: b.MaxPrice}
	}
	return nil
}

// RiskFromPrice maps price onto [0,1] on a log scale between the bounds.
// Prices at or beyond a bound saturate to 0 or 1.
func RiskFromPrice(b models.SymbolBounds, price float64) (float64, error) {
	if err := ValidateBounds(b); err != nil {
		return 0, err
	}
	if !isFinite(price) || price <= 0 {
		return 0, &InvalidPriceError{Price: price}
	}
	if price <= b.MinPrice {
		return 0, nil
	}
	if price >= b.MaxPrice {
		return 1, nil
	}
	r := math.Log(price/b.MinPrice) / math.Log(b.MaxPrice/b.MinPrice)
	return clamp(r, 0, 1), nil
}

// PriceFromRisk is the inverse of RiskFromPrice: min·(max/min)^risk.
func PriceFromRisk(b models.SymbolBounds, risk float64) (float64, error) {
	if err := ValidateBounds(b); err != nil {
		return 0, err
	}
	if !isFinite(risk) {
		return 0, &InvalidRiskError{Risk: risk}
	}
	if risk <= 0 {
		return b.MinPrice, nil
	}
	if risk >= 1 {
		return b.MaxPrice, nil
	}
	return b.MinPrice * math.Pow(b.MaxPrice/b.MinPrice, risk), nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
