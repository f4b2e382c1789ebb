package models

import "time"

// ScoreEvent is the message published for every computed score.
type ScoreEvent struct {
	EventID      string    `json:"event_id"`
	Symbol       string    `json:"symbol"`
	RiskValue    float64   `json:"risk_value"`
	Band         int       `json:"band"`
	BaseScore    float64   `json:"base_score"`
	Coefficient  float64   `json:"coefficient"`
	FinalScore   float64   `json:"final_score"`
	Signal       Signal    `json:"signal"`
	Degraded     bool      `json:"degraded"`
	TableVersion string    `json:"table_version,omitempty"`
	ComputedAt   time.Time `json:"computed_at"`
}

// DistributionUpdatedEvent announces new time-in-band statistics for a
// symbol. When DaysSpent is omitted the distribution is re-read from its
// source.
type DistributionUpdatedEvent struct {
	EventID    string    `json:"event_id"`
	Symbol     string    `json:"symbol"`
	DaysSpent  []int     `json:"days_spent,omitempty"`
	TotalDays  int       `json:"total_days,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
