package risk

import (
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
)

// BuildCoefficientTable derives per-band coefficients from time-in-band history.
// The most visited band gets CoefMin, the least visited CoefMax, and the rest
// scale linearly between them. A flat history yields CoefMin everywhere.
func BuildCoefficientTable(d models.HistoricalBandDistribution, p Params, version string, builtAt time.Time) (models.BandCoefficientTable, error) {
	if err := ValidateDistribution(d); err != nil {
		return models.BandCoefficientTable{}, err
	}

	common, rare := d.DaysSpent[0], d.DaysSpent[0]
	for _, days := range d.DaysSpent[1:] {
		if days > common {
			common = days
		}
		if days < rare {
			rare = days
		}
	}

	t := models.BandCoefficientTable{Symbol: d.Symbol, Version: version, BuiltAt: builtAt}
	if common == rare {
		for b := range t.Coefficients {
			t.Coefficients[b] = p.CoefMin
		}
		return t, nil
	}

	step := (p.CoefMax - p.CoefMin) / float64(common-rare)
	for b, days := range d.DaysSpent {
		if days == common {
			// pin exactly; the linear form can drift by an ulp
			t.Coefficients[b] = p.CoefMin
			continue
		}
		t.Coefficients[b] = p.ClampCoefficient(p.CoefMax - float64(days-rare)*step)
	}
	return t, nil
}

// ValidateDistribution rejects empty histories and negative counts. Band days
// may disagree with TotalDays either way while counts are updated incrementally.
func ValidateDistribution(d models.HistoricalBandDistribution) error {
	if d.TotalDays <= 0 {
		return &DistributionError{Symbol: d.Symbol, Reason: "no historical days"}
	}
	sum := 0
	for b, days := range d.DaysSpent {
		if days < 0 {
			return &DistributionError{Symbol: d.Symbol, Reason: fmt.Sprintf("band %d has negative day count %d", b, days)}
		}
		sum += days
	}
	if sum == 0 {
		return &DistributionError{Symbol: d.Symbol, Reason: "all bands are empty"}
	}
	return nil
}

// TableFromCoefficients builds a table from explicit, already calibrated values.
func TableFromCoefficients(symbol, version string, coefs []float64, p Params, builtAt time.Time) (models.BandCoefficientTable, error) {
	if len(coefs) != models.BandCount {
		return models.BandCoefficientTable{}, &DistributionError{Symbol: symbol, Reason: fmt.Sprintf("expected %d coefficients, got %d", models.BandCount, len(coefs))}
	}
	t := models.BandCoefficientTable{Symbol: symbol, Version: version, BuiltAt: builtAt}
	for i, c := range coefs {
		if !isFinite(c) {
			return models.BandCoefficientTable{}, &DistributionError{Symbol: symbol, Reason: fmt.Sprintf("coefficient %d is not finite", i)}
		}
		t.Coefficients[i] = p.ClampCoefficient(c)
	}
	return t, nil
}
