package models

// Requests for the scoring HTTP endpoints. Defined in domain for consistency and reuse.

type ScoreRequest struct {
	Symbol string  `query:"symbol" json:"symbol" validate:"required"`
	Price  float64 `query:"price" json:"price" validate:"omitempty,gt=0"`
	At     string  `query:"at" json:"at"`
}

type BatchScoreRequest struct {
	Symbols []string           `json:"symbols" validate:"required,min=1,max=500,dive,required"`
	Prices  map[string]float64 `json:"prices"`
	At      string             `json:"at"`
}

type PriceRequest struct {
	Symbol string  `query:"symbol" json:"symbol" validate:"required"`
	Risk   float64 `query:"risk" json:"risk" validate:"gte=0,lte=1"`
}

type InvalidateRequest struct {
	Symbol string `json:"symbol"`
	Scope  string `json:"scope" default:"all" validate:"oneof=all bounds state"`
}
