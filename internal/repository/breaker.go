package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
	applogger "FinRisk/pkg/logger"
)

var (
	_ domrepo.BoundsStore        = (*BreakerBoundsStore)(nil)
	_ domrepo.PriceSource        = (*BreakerPriceSource)(nil)
	_ domrepo.DistributionSource = (*BreakerDistributionSource)(nil)
)

type BreakerSettings struct {
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// NewBreaker trips after MaxFailures consecutive failures. Missing rows are
// answers, not failures.
func NewBreaker(name string, s BreakerSettings, l *applogger.Logger) *gobreaker.CircuitBreaker {
	if l == nil {
		l = applogger.Nop()
	}
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: s.Interval,
		Timeout:  s.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domrepo.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn("circuit breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()),
			)
		},
	})
}

// BreakerBoundsStore guards a BoundsStore with a circuit breaker.
type BreakerBoundsStore struct {
	next domrepo.BoundsStore
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerBoundsStore(next domrepo.BoundsStore, cb *gobreaker.CircuitBreaker) *BreakerBoundsStore {
	return &BreakerBoundsStore{next: next, cb: cb}
}

func (b *BreakerBoundsStore) GetBounds(ctx context.Context, symbol string) (models.SymbolBounds, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.GetBounds(ctx, symbol)
	})
	if err != nil {
		return models.SymbolBounds{}, err
	}
	return v.(models.SymbolBounds), nil
}

func (b *BreakerBoundsStore) UpsertBounds(ctx context.Context, bounds models.SymbolBounds) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.UpsertBounds(ctx, bounds)
	})
	return err
}

// BreakerPriceSource guards a PriceSource with a circuit breaker.
type BreakerPriceSource struct {
	next domrepo.PriceSource
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerPriceSource(next domrepo.PriceSource, cb *gobreaker.CircuitBreaker) *BreakerPriceSource {
	return &BreakerPriceSource{next: next, cb: cb}
}

type pricePoint struct {
	price float64
	at    time.Time
}

func (b *BreakerPriceSource) LatestPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		p, at, err := b.next.LatestPrice(ctx, symbol)
		return pricePoint{price: p, at: at}, err
	})
	if err != nil {
		return 0, time.Time{}, err
	}
	pp := v.(pricePoint)
	return pp.price, pp.at, nil
}

// BreakerDistributionSource guards a DistributionSource with a circuit breaker.
type BreakerDistributionSource struct {
	next domrepo.DistributionSource
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerDistributionSource(next domrepo.DistributionSource, cb *gobreaker.CircuitBreaker) *BreakerDistributionSource {
	return &BreakerDistributionSource{next: next, cb: cb}
}

func (b *BreakerDistributionSource) Distribution(ctx context.Context, symbol string) (models.HistoricalBandDistribution, error) {
	v, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Distribution(ctx, symbol)
	})
	if err != nil {
		return models.HistoricalBandDistribution{}, err
	}
	return v.(models.HistoricalBandDistribution), nil
}
