package repository

import (
	"context"
	"errors"
	"time"

	"FinRisk/internal/domain/models"
)

// ErrNotFound is returned by lookups when the symbol has no record.
var ErrNotFound = errors.New("not found")

// BoundsStore persists calibrated price bounds per symbol.
type BoundsStore interface {
	GetBounds(ctx context.Context, symbol string) (models.SymbolBounds, error)
	UpsertBounds(ctx context.Context, b models.SymbolBounds) error
}

// PriceSource supplies the latest observed price of a symbol.
type PriceSource interface {
	LatestPrice(ctx context.Context, symbol string) (price float64, at time.Time, err error)
}

// DistributionSource supplies the historical time-in-band statistics.
type DistributionSource interface {
	Distribution(ctx context.Context, symbol string) (models.HistoricalBandDistribution, error)
}

// StateStore keeps the band history used by the transition rules.
type StateStore interface {
	LoadState(ctx context.Context, symbol string) (models.CoefficientState, error)
	SaveState(ctx context.Context, symbol string, st models.CoefficientState) error
	DeleteState(ctx context.Context, symbol string) error
}

// ScorePublisher forwards score results to downstream consumers.
type ScorePublisher interface {
	PublishScore(ctx context.Context, res models.ScoreResult, tableVersion string) error
	Close() error
}

type Metrics interface {
	RecordScore(res models.ScoreResult)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordTableRebuild(symbol string, err error)
}
