package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
	domrepo "FinRisk/internal/domain/repository"
)

type countingStateStore struct {
	*MemoryStateStore
	loads   int
	saveErr error
}

func (c *countingStateStore) LoadState(ctx context.Context, symbol string) (models.CoefficientState, error) {
	c.loads++
	return c.MemoryStateStore.LoadState(ctx, symbol)
}

func (c *countingStateStore) SaveState(ctx context.Context, symbol string, st models.CoefficientState) error {
	if c.saveErr != nil {
		return c.saveErr
	}
	return c.MemoryStateStore.SaveState(ctx, symbol, st)
}

func TestCachedStateStore(t *testing.T) {
	ctx := context.Background()
	inner := &countingStateStore{MemoryStateStore: NewMemoryStateStore()}
	s := NewCachedStateStore(inner, time.Minute)

	band := 4
	require.NoError(t, s.SaveState(ctx, "BTC", models.CoefficientState{CurrentBand: &band}))

	for i := 0; i < 3; i++ {
		st, err := s.LoadState(ctx, "BTC")
		require.NoError(t, err)
		assert.Equal(t, 4, *st.CurrentBand)
	}
	assert.Zero(t, inner.loads)

	assert.Equal(t, 1, s.Invalidate("BTC"))
	_, err := s.LoadState(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.loads)

	inner.saveErr = errors.New("down")
	assert.Error(t, s.SaveState(ctx, "BTC", models.CoefficientState{}))
	_, err = s.LoadState(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.loads)

	require.NoError(t, s.DeleteState(ctx, "BTC"))
	st, err := s.LoadState(ctx, "BTC")
	require.NoError(t, err)
	assert.Nil(t, st.CurrentBand)
}

func TestStaticDistributions(t *testing.T) {
	s := NewStaticDistributions(models.HistoricalBandDistribution{Symbol: "ETH", TotalDays: 10})
	d, err := s.Distribution(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 10, d.TotalDays)

	_, err = s.Distribution(context.Background(), "BTC")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}
