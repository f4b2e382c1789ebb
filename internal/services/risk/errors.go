package risk

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidBounds    = errors.New("risk: invalid bounds")
	ErrInvalidPrice     = errors.New("risk: invalid price")
	ErrInvalidRisk      = errors.New("risk: invalid risk value")
	ErrDistribution     = errors.New("risk: invalid band distribution")
	ErrScoreComputation = errors.New("risk: score computation failed")
)

// InvalidBoundsError reports malformed calibration bounds.
type InvalidBoundsError struct {
	Symbol   string
	MinPrice float64
	MaxPrice float64
}

func (e *InvalidBoundsError) Error() string {
	return fmt.Sprintf("%v: symbol=%q min=%g max=%g", ErrInvalidBounds, e.Symbol, e.MinPrice, e.MaxPrice)
}

func (e *InvalidBoundsError) Unwrap() error { return ErrInvalidBounds }

// InvalidPriceError reports a non-finite or non-positive price.
type InvalidPriceError struct {
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("%v: %g", ErrInvalidPrice, e.Price)
}

func (e *InvalidPriceError) Unwrap() error { return ErrInvalidPrice }

// InvalidRiskError reports a non-finite risk value.
type InvalidRiskError struct {
	Risk float64
}

func (e *InvalidRiskError) Error() string {
	return fmt.Sprintf("%v: %g", ErrInvalidRisk, e.Risk)
}

func (e *InvalidRiskError) Unwrap() error { return ErrInvalidRisk }

// DistributionError reports a missing, incomplete or degenerate distribution.
type DistributionError struct {
	Symbol string
	Reason string
}

func (e *DistributionError) Error() string {
	return fmt.Sprintf("%v: symbol=%q: %s", ErrDistribution, e.Symbol, e.Reason)
}

func (e *DistributionError) Unwrap() error { return ErrDistribution }

// ScoreComputationError reports a NaN or Inf operand reaching the scorer.
type ScoreComputationError struct {
	Operand string
	Value   float64
}

func (e *ScoreComputationError) Error() string {
	return fmt.Sprintf("%v: %s=%g", ErrScoreComputation, e.Operand, e.Value)
}

func (e *ScoreComputationError) Unwrap() error { return ErrScoreComputation }

// IsValidation reports whether err stems from bad caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidBounds) || errors.Is(err, ErrInvalidPrice) || errors.Is(err, ErrInvalidRisk)
}
