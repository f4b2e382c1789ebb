package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
)

type flakyPrices struct {
	err   error
	calls int
}

func (f *flakyPrices) LatestPrice(_ context.Context, symbol string) (float64, time.Time, error) {
	f.calls++
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	return 100, time.Unix(0, 0), nil
}

func TestBreakerPriceSource_TripsOnFailures(t *testing.T) {
	src := &flakyPrices{err: errors.New("timeout")}
	cb := NewBreaker("prices", BreakerSettings{MaxFailures: 2, Timeout: time.Minute}, nil)
	p := NewBreakerPriceSource(src, cb)

	for i := 0; i < 2; i++ {
		_, _, err := p.LatestPrice(context.Background(), "BTC")
		assert.Error(t, err)
	}
	_, _, err := p.LatestPrice(context.Background(), "BTC")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, src.calls)
}

func TestBreakerPriceSource_NotFoundDoesNotTrip(t *testing.T) {
	src := &flakyPrices{err: fmt.Errorf("price: %w", domrepo.ErrNotFound)}
	cb := NewBreaker("prices", BreakerSettings{MaxFailures: 1, Timeout: time.Minute}, nil)
	p := NewBreakerPriceSource(src, cb)

	for i := 0; i < 3; i++ {
		_, _, err := p.LatestPrice(context.Background(), "BTC")
		assert.ErrorIs(t, err, domrepo.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	src.err = nil
	price, _, err := p.LatestPrice(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 100.0, price)
}

func TestBreakerDistributionSource(t *testing.T) {
	cb := NewBreaker("dist", BreakerSettings{}, nil)
	src := NewBreakerDistributionSource(NewStaticDistributions(models.HistoricalBandDistribution{Symbol: "ETH", TotalDays: 3}), cb)

	d, err := src.Distribution(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3, d.TotalDays)

	_, err = src.Distribution(context.Background(), "BTC")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}
