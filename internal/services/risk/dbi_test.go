package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

var (
	day1 = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	day2 = day1.Add(24 * time.Hour)
)

func sampleTable() models.BandCoefficientTable {
	return models.BandCoefficientTable{
		Symbol:       "BTC",
		Version:      "test",
		Coefficients: [models.BandCount]float64{1.538, 1.221, 1.157, 1.000, 1.016, 1.101, 1.411, 1.537, 1.568, 1.600},
	}
}

func state(cur, prev int, changed *time.Time) models.CoefficientState {
	return models.CoefficientState{CurrentBand: intPtr(cur), PreviousBand: intPtr(prev), LastBandChangeDate: changed}
}

func TestCoefficient_Interpolation(t *testing.T) {
	res, err := Coefficient(sampleTable(), DefaultParams(), 0.475, models.CoefficientState{}, day1)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Band)
	assert.Equal(t, 5, res.Neighbor)
	assert.InDelta(t, 0.85, res.Slope, 1e-9)
	assert.InDelta(t, 1.03725, res.Coefficient, 1e-9)
	assert.Equal(t, RuleInterpolated, res.Rule)
}

func TestCoefficient_AtMidpointEqualsBand(t *testing.T) {
	tbl := sampleTable()
	for b := 0; b < models.BandCount; b++ {
		res, err := Coefficient(tbl, DefaultParams(), BandMidpoint(b), models.CoefficientState{}, day1)
		require.NoError(t, err)
		assert.InDelta(t, tbl.Coefficients[b], res.Coefficient, 1e-9, "band %d", b)
	}
}

func TestCoefficient_ContinuousAcrossEdges(t *testing.T) {
	tbl := sampleTable()
	const eps = 1e-9
	for b := 1; b < models.BandCount; b++ {
		edge := float64(b) / 10
		below, err := Coefficient(tbl, DefaultParams(), edge-eps, models.CoefficientState{}, day1)
		require.NoError(t, err)
		above, err := Coefficient(tbl, DefaultParams(), edge, models.CoefficientState{}, day1)
		require.NoError(t, err)
		assert.InDelta(t, below.Coefficient, above.Coefficient, 1e-6, "edge %v", edge)
	}
}

func TestCoefficient_OuterEdgesAreFlat(t *testing.T) {
	tbl := sampleTable()

	res, err := Coefficient(tbl, DefaultParams(), 0.01, models.CoefficientState{}, day1)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Neighbor)
	assert.Equal(t, 0.0, res.Slope)
	assert.Equal(t, tbl.Coefficients[0], res.Coefficient)

	res, err = Coefficient(tbl, DefaultParams(), 0.99, models.CoefficientState{}, day1)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Neighbor)
	assert.Equal(t, tbl.Coefficients[9], res.Coefficient)

	res, err = Coefficient(tbl, DefaultParams(), 1.0, models.CoefficientState{}, day1)
	require.NoError(t, err)
	assert.Equal(t, 9, res.Band)
	assert.Equal(t, tbl.Coefficients[9], res.Coefficient)
}

func TestCoefficient_FirstDay(t *testing.T) {
	tbl := sampleTable()
	// moved up from band 3 (1.000) into band 4 today
	res, err := Coefficient(tbl, DefaultParams(), 0.475, state(4, 3, &day1), day1.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, RuleFirstDay, res.Rule)
	assert.Equal(t, tbl.Coefficients[4], res.Coefficient)
}

func TestCoefficient_TieBreak(t *testing.T) {
	tbl := sampleTable()

	// dropped from band 6 (1.411) into band 5 yesterday: never below the departed band
	res, err := Coefficient(tbl, DefaultParams(), 0.52, state(5, 6, &day1), day2)
	require.NoError(t, err)
	assert.Equal(t, RuleTieBreak, res.Rule)
	assert.Equal(t, tbl.Coefficients[6], res.Coefficient)

	// same-day change where the departed band is higher still wins the max
	res, err = Coefficient(tbl, DefaultParams(), 0.52, state(5, 6, &day2), day2)
	require.NoError(t, err)
	assert.Equal(t, RuleTieBreak, res.Rule)
	assert.Equal(t, tbl.Coefficients[6], res.Coefficient)

	// departed band lower than the interpolated value leaves it untouched
	res, err = Coefficient(tbl, DefaultParams(), 0.62, state(6, 3, &day1), day2)
	require.NoError(t, err)
	assert.Equal(t, RuleInterpolated, res.Rule)
	assert.GreaterOrEqual(t, res.Coefficient, tbl.Coefficients[3])
}

func TestCoefficient_TieBreakProperty(t *testing.T) {
	tbl := sampleTable()
	for r := 0.0; r <= 1.0; r += 0.013 {
		cur := BandOf(r)
		for prev := 0; prev < models.BandCount; prev++ {
			if prev == cur {
				continue
			}
			res, err := Coefficient(tbl, DefaultParams(), r, state(cur, prev, &day1), day2)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.Coefficient, tbl.Coefficients[prev])
		}
	}
}

func TestCoefficient_SamePreviousBandIgnored(t *testing.T) {
	res, err := Coefficient(sampleTable(), DefaultParams(), 0.475, state(4, 4, &day1), day1)
	require.NoError(t, err)
	assert.Equal(t, RuleInterpolated, res.Rule)
	assert.InDelta(t, 1.03725, res.Coefficient, 1e-9)
}

func TestCoefficient_ClampsToLimits(t *testing.T) {
	tbl := sampleTable()
	p := Params{CoefMin: 1.1, CoefMax: 1.5, Thresholds: DefaultParams().Thresholds}
	res, err := Coefficient(tbl, p, 0.35, models.CoefficientState{}, day1)
	require.NoError(t, err)
	assert.Equal(t, 1.1, res.Coefficient)

	res, err = Coefficient(tbl, p, 0.95, models.CoefficientState{}, day1)
	require.NoError(t, err)
	assert.Equal(t, 1.5, res.Coefficient)
}

func TestCoefficient_InvalidInput(t *testing.T) {
	_, err := Coefficient(sampleTable(), DefaultParams(), math.NaN(), models.CoefficientState{}, day1)
	assert.ErrorIs(t, err, ErrInvalidRisk)

	_, err = Coefficient(sampleTable(), DefaultParams(), 0.5, state(5, 12, nil), day1)
	assert.ErrorIs(t, err, ErrInvalidRisk)
}

func TestNextState(t *testing.T) {
	// first observation
	st := NextState(models.CoefficientState{}, 4, day1)
	require.NotNil(t, st.CurrentBand)
	assert.Equal(t, 4, *st.CurrentBand)
	assert.Nil(t, st.PreviousBand)
	assert.Nil(t, st.LastBandChangeDate)
	require.NotNil(t, st.LastObservedDate)
	assert.True(t, st.LastObservedDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))

	// band change records the band left and the change day
	st = NextState(st, 5, day1.Add(time.Hour))
	assert.Equal(t, 5, *st.CurrentBand)
	assert.Equal(t, 4, *st.PreviousBand)
	require.NotNil(t, st.LastBandChangeDate)
	assert.True(t, st.LastBandChangeDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))

	// same band, same day keeps the transition
	st = NextState(st, 5, day1.Add(2*time.Hour))
	assert.Equal(t, 4, *st.PreviousBand)

	// same band on a later day keeps the transition history
	st = NextState(st, 5, day2)
	assert.Equal(t, 4, *st.PreviousBand)
	assert.Equal(t, 5, *st.CurrentBand)
	assert.True(t, st.LastBandChangeDate.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, st.LastObservedDate.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)))

	// the next real change replaces it
	st = NextState(st, 7, day2)
	assert.Equal(t, 5, *st.PreviousBand)
	assert.Equal(t, 7, *st.CurrentBand)
}

func TestNextState_MissingObservedDateIsNotANewDay(t *testing.T) {
	in := models.CoefficientState{CurrentBand: intPtr(5), PreviousBand: intPtr(4), LastBandChangeDate: &day1}
	st := NextState(in, 5, day1)
	assert.Equal(t, 4, *st.PreviousBand)
	assert.Equal(t, &day1, st.LastBandChangeDate)
}

func TestNextState_KeepsSuppliedHistory(t *testing.T) {
	in := models.CoefficientState{PreviousBand: intPtr(2), LastBandChangeDate: &day1}
	st := NextState(in, 3, day1)
	assert.Equal(t, 2, *st.PreviousBand)
	assert.Equal(t, &day1, st.LastBandChangeDate)
}
