package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

func dist(days ...int) models.HistoricalBandDistribution {
	d := models.HistoricalBandDistribution{Symbol: "BTC"}
	for i, v := range days {
		d.DaysSpent[i] = v
		d.TotalDays += v
	}
	return d
}

func TestBuildCoefficientTable_Linear(t *testing.T) {
	p := DefaultParams()
	d := dist(10, 60, 110, 210, 160, 90, 40, 20, 15, 10)
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	tbl, err := BuildCoefficientTable(d, p, "v1", at)
	require.NoError(t, err)
	assert.Equal(t, "BTC", tbl.Symbol)
	assert.Equal(t, "v1", tbl.Version)
	assert.Equal(t, at, tbl.BuiltAt)

	assert.Equal(t, p.CoefMin, tbl.Coefficients[3])
	assert.InDelta(t, p.CoefMax, tbl.Coefficients[0], 1e-12)
	assert.InDelta(t, p.CoefMax, tbl.Coefficients[9], 1e-12)

	step := (p.CoefMax - p.CoefMin) / 200
	assert.InDelta(t, p.CoefMax-50*step, tbl.Coefficients[1], 1e-12)
	assert.InDelta(t, p.CoefMax-150*step, tbl.Coefficients[4], 1e-12)

	for _, c := range tbl.Coefficients {
		assert.GreaterOrEqual(t, c, p.CoefMin)
		assert.LessOrEqual(t, c, p.CoefMax)
	}
}

func TestBuildCoefficientTable_FewerDaysHigherCoefficient(t *testing.T) {
	d := dist(5, 40, 100, 300, 250, 120, 60, 30, 10, 1)
	tbl, err := BuildCoefficientTable(d, DefaultParams(), "v", time.Time{})
	require.NoError(t, err)

	for i := range d.DaysSpent {
		for j := range d.DaysSpent {
			if d.DaysSpent[i] < d.DaysSpent[j] {
				assert.Greater(t, tbl.Coefficients[i], tbl.Coefficients[j], "bands %d vs %d", i, j)
			}
		}
	}
}

func TestBuildCoefficientTable_Flat(t *testing.T) {
	p := DefaultParams()
	tbl, err := BuildCoefficientTable(dist(7, 7, 7, 7, 7, 7, 7, 7, 7, 7), p, "v", time.Time{})
	require.NoError(t, err)
	for _, c := range tbl.Coefficients {
		assert.Equal(t, p.CoefMin, c)
	}
}

func TestBuildCoefficientTable_InvalidDistribution(t *testing.T) {
	cases := map[string]models.HistoricalBandDistribution{
		"zero total": {Symbol: "X"},
		"all empty":  {Symbol: "X", TotalDays: 30},
		"negative":   {Symbol: "X", DaysSpent: [models.BandCount]int{-1, 5}, TotalDays: 10},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildCoefficientTable(d, DefaultParams(), "v", time.Time{})
			require.ErrorIs(t, err, ErrDistribution)
			var de *DistributionError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, "X", de.Symbol)
			assert.False(t, IsValidation(err))
		})
	}
}

func TestBuildCoefficientTable_PartialTotal(t *testing.T) {
	d := dist(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	d.TotalDays += 30 // days outside the calibrated range
	_, err := BuildCoefficientTable(d, DefaultParams(), "v", time.Time{})
	assert.NoError(t, err)
}

func TestBuildCoefficientTable_BandDaysAheadOfTotal(t *testing.T) {
	d := dist(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	d.TotalDays = 40 // band counts landed before the total was refreshed
	lagging, err := BuildCoefficientTable(d, DefaultParams(), "v", time.Time{})
	require.NoError(t, err)

	exact, err := BuildCoefficientTable(dist(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), DefaultParams(), "v", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, exact.Coefficients, lagging.Coefficients)
}

func TestTableFromCoefficients(t *testing.T) {
	p := DefaultParams()
	tbl, err := TableFromCoefficients("ETH", "seed", []float64{0.5, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6, 1.7, 1.0, 1.0}, p, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, p.CoefMin, tbl.Coefficients[0])
	assert.Equal(t, p.CoefMax, tbl.Coefficients[7])
	assert.Equal(t, 1.3, tbl.Coefficients[3])

	_, err = TableFromCoefficients("ETH", "seed", []float64{1, 2}, p, time.Time{})
	assert.ErrorIs(t, err, ErrDistribution)
}
