package models

import "time"

// BandCount is the number of fixed-width risk bands.
const BandCount = 10

// SymbolBounds is the calibrated price range of a symbol for one calibration epoch.
type SymbolBounds struct {
	Symbol   string  `json:"symbol"`
	MinPrice float64 `json:"min_price"`
	MaxPrice float64 `json:"max_price"`
	Epoch    string  `json:"epoch,omitempty"`
}

// HistoricalBandDistribution holds how many days a symbol spent in each band.
type HistoricalBandDistribution struct {
	Symbol    string
	DaysSpent [BandCount]int
	TotalDays int
}

// BandCoefficientTable is an immutable per-band coefficient snapshot.
type BandCoefficientTable struct {
	Symbol       string
	Version      string
	Coefficients [BandCount]float64
	BuiltAt      time.Time
}

// CoefficientState carries the band history needed by the transition rules.
// Nil pointers mean "unknown".
type CoefficientState struct {
	CurrentBand        *int       `json:"current_band,omitempty"`
	PreviousBand       *int       `json:"previous_band,omitempty"`
	LastBandChangeDate *time.Time `json:"last_band_change_date,omitempty"`
	LastObservedDate   *time.Time `json:"last_observed_date,omitempty"`
}

// Signal is the discrete trading label derived from a final score.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalNeutral    Signal = "NEUTRAL"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// ScoreResult is the engine output for one symbol evaluation.
type ScoreResult struct {
	Symbol      string
	RiskValue   float64
	Band        int
	BaseScore   float64
	Coefficient float64
	FinalScore  float64
	Signal      Signal
	Degraded    bool // coefficient fell back to the neutral value
	ComputedAt  time.Time
}
