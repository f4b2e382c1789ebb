package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinRisk/internal/domain/models"
)

func TestStateCodec_RoundTrip(t *testing.T) {
	cur, prev := 5, 6
	changed := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	observed := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	st := models.CoefficientState{CurrentBand: &cur, PreviousBand: &prev, LastBandChangeDate: &changed, LastObservedDate: &observed}

	enc := encodeState(st)
	h := make(map[string]string, len(enc))
	for k, v := range enc {
		h[k] = v.(string)
	}
	assert.Equal(t, "5", h["current_band"])
	assert.Equal(t, "2025-03-10T00:00:00Z", h["last_band_change_date"])

	got, err := decodeState(h)
	require.NoError(t, err)
	assert.Equal(t, st, got)
}

func TestStateCodec_Empty(t *testing.T) {
	assert.Empty(t, encodeState(models.CoefficientState{}))

	st, err := decodeState(map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, models.CoefficientState{}, st)
}

func TestStateCodec_Corrupt(t *testing.T) {
	_, err := decodeState(map[string]string{"current_band": "five"})
	assert.Error(t, err)

	_, err = decodeState(map[string]string{"last_observed_date": "yesterday"})
	assert.Error(t, err)
}
