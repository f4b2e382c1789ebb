package risk

import (
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
	"FinRisk/pkg/util"
)

// Rule names the branch of the DBI calculation that produced a coefficient.
type Rule string

const (
	RuleInterpolated Rule = "interpolated"
	RuleFirstDay     Rule = "first_day"
	RuleTieBreak     Rule = "tie_break"
	RuleNeutral      Rule = "neutral"
)

// DBIResult is a coefficient together with how it was derived.
type DBIResult struct {
	Coefficient  float64
	Band         int
	Neighbor     int
	Slope        float64
	Interpolated float64
	Rule         Rule
}

// Coefficient runs Dynamic Bidirectional Interpolation for a risk value.
//
// The coefficient moves linearly between band midpoints, so it is continuous
// across band edges. Two stateful overrides apply when the state records a
// previous band different from the current one: on the day of the change the
// plain band coefficient is used, and the result never drops below the
// coefficient of the band just left.
func Coefficient(t models.BandCoefficientTable, p Params, risk float64, st models.CoefficientState, evalDate time.Time) (DBIResult, error) {
	if !isFinite(risk) {
		return DBIResult{}, &InvalidRiskError{Risk: risk}
	}
	if err := ValidateState(st); err != nil {
		return DBIResult{}, err
	}
	risk = clamp(risk, 0, 1)

	cur := BandOf(risk)
	mid := BandMidpoint(cur)
	distance := risk - mid

	var neighbor int
	if distance >= 0 {
		neighbor = clampBand(cur + 1)
	} else {
		neighbor = clampBand(cur - 1)
	}

	res := DBIResult{Band: cur, Neighbor: neighbor, Rule: RuleInterpolated}
	if neighbor != cur {
		res.Slope = (t.Coefficients[neighbor] - t.Coefficients[cur]) / (BandMidpoint(neighbor) - mid)
	}
	res.Interpolated = t.Coefficients[cur] + distance*res.Slope
	value := res.Interpolated

	if st.PreviousBand != nil && *st.PreviousBand != cur {
		if st.LastBandChangeDate != nil && util.SameDay(*st.LastBandChangeDate, evalDate) {
			value = t.Coefficients[cur]
			res.Rule = RuleFirstDay
		}
		if prev := t.Coefficients[*st.PreviousBand]; prev > value {
			value = prev
			res.Rule = RuleTieBreak
		}
	}

	res.Coefficient = p.ClampCoefficient(value)
	return res, nil
}

// ValidateState rejects band ids outside 0..9.
func ValidateState(st models.CoefficientState) error {
	if st.CurrentBand != nil && !ValidBand(*st.CurrentBand) {
		return fmt.Errorf("%w: current band %d out of range", ErrInvalidRisk, *st.CurrentBand)
	}
	if st.PreviousBand != nil && !ValidBand(*st.PreviousBand) {
		return fmt.Errorf("%w: previous band %d out of range", ErrInvalidRisk, *st.PreviousBand)
	}
	return nil
}

// NextState advances the band history after observing band at time at.
//
// A band change records the band left and the change date. Both persist
// until the next change, so the tie-break keeps applying after the change day.
func NextState(st models.CoefficientState, band int, at time.Time) models.CoefficientState {
	day := util.DayStart(at)
	next := models.CoefficientState{
		CurrentBand:        intPtr(band),
		PreviousBand:       st.PreviousBand,
		LastBandChangeDate: st.LastBandChangeDate,
		LastObservedDate:   &day,
	}

	if st.CurrentBand != nil && *st.CurrentBand != band {
		next.PreviousBand = intPtr(*st.CurrentBand)
		next.LastBandChangeDate = &day
	}
	return next
}

func intPtr(v int) *int { return &v }
