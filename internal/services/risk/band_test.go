package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBandOf(t *testing.T) {
	cases := []struct {
		risk float64
		want int
	}{
		{0, 0},
		{0.05, 0},
		{0.0999, 0},
		{0.1, 1},
		{0.475, 4},
		{0.5, 5},
		{0.9, 9},
		{0.99, 9},
		{1.0, 9},
		{1.3, 9},
		{-0.2, 0},
		{math.NaN(), 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, BandOf(c.risk), "risk %v", c.risk)
	}
}

func TestBandOf_NonDecreasing(t *testing.T) {
	prev := 0
	for r := 0.0; r <= 1.0; r += 0.001 {
		b := BandOf(r)
		assert.GreaterOrEqual(t, b, prev)
		assert.True(t, ValidBand(b))
		prev = b
	}
}

func TestBandBounds(t *testing.T) {
	lo, hi := BandBounds(0)
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 0.1, hi, 1e-15)

	lo, hi = BandBounds(9)
	assert.InDelta(t, 0.9, lo, 1e-15)
	assert.Equal(t, 1.0, hi)

	assert.InDelta(t, 0.45, BandMidpoint(4), 1e-15)
	assert.InDelta(t, 0.95, BandMidpoint(9), 1e-15)
}
