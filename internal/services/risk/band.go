package risk

import (
	"math"

	"FinRisk/internal/domain/models"
)

const (
	// BandWidth is the width of one risk band.
	BandWidth = 1.0 / models.BandCount
	maxBand   = models.BandCount - 1
)

// BandOf returns the band id of a risk value; risk 1.0 falls into the top band.
func BandOf(risk float64) int {
	if math.IsNaN(risk) || risk <= 0 {
		return 0
	}
	b := int(math.Floor(risk * models.BandCount))
	if b > maxBand {
		return maxBand
	}
	return b
}

// BandBounds returns the half-open interval [lo, hi) covered by band i.
func BandBounds(i int) (lo, hi float64) {
	i = clampBand(i)
	return float64(i) / models.BandCount, float64(i+1) / models.BandCount
}

// BandMidpoint is the anchor point of a band's coefficient.
func BandMidpoint(i int) float64 {
	lo, _ := BandBounds(i)
	return lo + BandWidth/2
}

// ValidBand reports whether i is a band id.
func ValidBand(i int) bool { return i >= 0 && i <= maxBand }

func clampBand(i int) int {
	if i < 0 {
		return 0
	}
	if i > maxBand {
		return maxBand
	}
	return i
}
