package risk

import (
	"fmt"
	"time"

	"FinRisk/internal/domain/models"
)

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithDegradeGracefully makes a missing coefficient table fall back to
// CoefMin instead of failing the evaluation.
func WithDegradeGracefully(enabled bool) EngineOption {
	return func(e *Engine) {
		e.degrade = enabled
	}
}

// Engine runs the full price → score pipeline for one symbol.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	params  Params
	scorer  *Scorer
	degrade bool
}

// NewEngine validates p and returns an engine.
func NewEngine(p Params, opts ...EngineOption) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	e := &Engine{params: p, scorer: NewScorer(p.Thresholds)}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Params returns the engine calibration limits and thresholds.
func (e *Engine) Params() Params { return e.params }

// DegradeGracefully reports whether missing tables fall back to CoefMin.
func (e *Engine) DegradeGracefully() bool { return e.degrade }

// EvalInput is everything needed to score one symbol.
type EvalInput struct {
	Bounds models.SymbolBounds
	Price  float64
	Table  *models.BandCoefficientTable // nil when no table is available
	State  models.CoefficientState
	At     time.Time
}

// Evaluation is the outcome of Evaluate.
type Evaluation struct {
	Result    models.ScoreResult
	DBI       DBIResult
	NextState models.CoefficientState
}

// Evaluate converts the price to risk, derives the DBI coefficient against the
// state advanced to this observation, and scores the result.
func (e *Engine) Evaluate(in EvalInput) (Evaluation, error) {
	risk, err := RiskFromPrice(in.Bounds, in.Price)
	if err != nil {
		return Evaluation{}, err
	}
	band := BandOf(risk)
	if err := ValidateState(in.State); err != nil {
		return Evaluation{}, err
	}
	next := NextState(in.State, band, in.At)

	var dbi DBIResult
	degraded := false
	switch {
	case in.Table != nil:
		dbi, err = Coefficient(*in.Table, e.params, risk, next, in.At)
		if err != nil {
			return Evaluation{}, err
		}
	case e.degrade:
		dbi = e.Neutral(band)
		degraded = true
	default:
		return Evaluation{}, &DistributionError{Symbol: in.Bounds.Symbol, Reason: "no coefficient table"}
	}

	res, err := e.scorer.Score(in.Bounds.Symbol, risk, dbi.Coefficient, in.At)
	if err != nil {
		return Evaluation{}, err
	}
	res.Degraded = degraded
	return Evaluation{Result: res, DBI: dbi, NextState: next}, nil
}

// Neutral returns a DBI result pinned at CoefMin.
func (e *Engine) Neutral(band int) DBIResult {
	return DBIResult{Coefficient: e.params.CoefMin, Band: band, Neighbor: band, Rule: RuleNeutral}
}
