package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultParams(), opts...)
	require.NoError(t, err)
	return e
}

func TestEngine_Evaluate(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable()

	ev, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, Table: &tbl, At: day1})
	require.NoError(t, err)

	res := ev.Result
	assert.InDelta(t, 0.50313, res.RiskValue, 1e-4)
	assert.Equal(t, 5, res.Band)
	assert.InDelta(t, 1.06116, res.Coefficient, 1e-4)
	assert.InDelta(t, 49.6873, res.BaseScore, 1e-3)
	assert.InDelta(t, 52.7261, res.FinalScore, 1e-3)
	assert.Equal(t, models.SignalNeutral, res.Signal)
	assert.False(t, res.Degraded)

	require.NotNil(t, ev.NextState.CurrentBand)
	assert.Equal(t, 5, *ev.NextState.CurrentBand)
	assert.Equal(t, RuleInterpolated, ev.DBI.Rule)
}

func TestEngine_EvaluateAtRisk0475(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable()
	price, err := PriceFromRisk(btcBounds, 0.475)
	require.NoError(t, err)

	ev, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: price, Table: &tbl, At: day1})
	require.NoError(t, err)
	assert.InDelta(t, 0.475, ev.Result.RiskValue, 1e-9)
	assert.InDelta(t, 1.03725, ev.Result.Coefficient, 1e-6)
	assert.InDelta(t, 54.4556, ev.Result.FinalScore, 1e-3)
	assert.Equal(t, models.SignalNeutral, ev.Result.Signal)
}

func TestEngine_BandChangeOverrides(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable()

	// risen from band 4 into band 5 on day2: plain band coefficient
	prior := models.CoefficientState{CurrentBand: intPtr(4), LastObservedDate: &day1}
	ev, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, Table: &tbl, State: prior, At: day2})
	require.NoError(t, err)
	assert.Equal(t, 4, *ev.NextState.PreviousBand)
	assert.Equal(t, RuleFirstDay, ev.DBI.Rule)
	assert.Equal(t, tbl.Coefficients[5], ev.Result.Coefficient)

	// fallen from band 6 into band 5: never below the departed band
	prior = models.CoefficientState{CurrentBand: intPtr(6), LastObservedDate: &day1}
	ev, err = e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, Table: &tbl, State: prior, At: day2})
	require.NoError(t, err)
	assert.Equal(t, 6, *ev.NextState.PreviousBand)
	assert.Equal(t, RuleTieBreak, ev.DBI.Rule)
	assert.Equal(t, tbl.Coefficients[6], ev.Result.Coefficient)
}

func TestEngine_SuppliedStateKeepsFirstDayRule(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable()

	prior := models.CoefficientState{CurrentBand: intPtr(5), PreviousBand: intPtr(4), LastBandChangeDate: &day1}
	ev, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, Table: &tbl, State: prior, At: day1})
	require.NoError(t, err)
	assert.Equal(t, RuleFirstDay, ev.DBI.Rule)
	assert.Equal(t, tbl.Coefficients[5], ev.Result.Coefficient)
	assert.Equal(t, 4, *ev.NextState.PreviousBand)
}

func TestEngine_TieBreakHoldsAfterChangeDay(t *testing.T) {
	e := newTestEngine(t)
	tbl := sampleTable()

	st := models.CoefficientState{CurrentBand: intPtr(5), PreviousBand: intPtr(6), LastBandChangeDate: &day1, LastObservedDate: &day1}
	for _, at := range []time.Time{day2, day2.Add(24 * time.Hour), day2.Add(72 * time.Hour)} {
		ev, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, Table: &tbl, State: st, At: at})
		require.NoError(t, err)
		assert.Equal(t, RuleTieBreak, ev.DBI.Rule)
		assert.GreaterOrEqual(t, ev.Result.Coefficient, tbl.Coefficients[6])
		assert.Equal(t, 6, *ev.NextState.PreviousBand)
		st = ev.NextState
	}
}

func TestEngine_MissingTable(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, At: day1})
	require.ErrorIs(t, err, ErrDistribution)

	e = newTestEngine(t, WithDegradeGracefully(true))
	assert.True(t, e.DegradeGracefully())
	ev, err := e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, At: day1})
	require.NoError(t, err)
	assert.True(t, ev.Result.Degraded)
	assert.Equal(t, DefaultCoefMin, ev.Result.Coefficient)
	assert.Equal(t, RuleNeutral, ev.DBI.Rule)
	assert.InDelta(t, ev.Result.BaseScore, ev.Result.FinalScore, 1e-12)
}

func TestEngine_PropagatesValidationErrors(t *testing.T) {
	e := newTestEngine(t, WithDegradeGracefully(true))
	tbl := sampleTable()

	_, err := e.Evaluate(EvalInput{Bounds: models.SymbolBounds{Symbol: "X", MinPrice: 5, MaxPrice: 1}, Price: 3, Table: &tbl})
	assert.ErrorIs(t, err, ErrInvalidBounds)

	_, err = e.Evaluate(EvalInput{Bounds: btcBounds, Price: -1, Table: &tbl})
	assert.ErrorIs(t, err, ErrInvalidPrice)

	bad := models.CoefficientState{CurrentBand: intPtr(11)}
	_, err = e.Evaluate(EvalInput{Bounds: btcBounds, Price: 95509, Table: &tbl, State: bad})
	assert.ErrorIs(t, err, ErrInvalidRisk)
}

func TestNewEngine_InvalidParams(t *testing.T) {
	_, err := NewEngine(Params{CoefMin: 2, CoefMax: 1})
	assert.Error(t, err)
}
