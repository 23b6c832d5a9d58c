package models

// MarketQuote is a point-in-time price snapshot for a single contestant.
// Odds are decimal odds and must be greater than 1.0 to be usable; the
// edge evaluator filters anything else out rather than erroring.
type MarketQuote struct {
	SelectionID string   `json:"selection_id"`
	Odds        float64  `json:"odds" validate:"gt=1"`
	Volume      *float64 `json:"volume,omitempty"`
}

// ImpliedProbability returns the market-implied win probability (1/odds).
// Returns 0 for unusable odds.
func (q MarketQuote) ImpliedProbability() float64 {
	if q.Odds <= 1.0 {
		return 0
	}
	return 1.0 / q.Odds
}

// IsUsable reports whether the quote can back a betting decision.
func (q MarketQuote) IsUsable() bool {
	return q.Odds > 1.0
}
