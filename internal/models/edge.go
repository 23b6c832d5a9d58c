package models

// ValueEdge is the per-contestant comparison between the model's calibrated
// win probability and the market-implied probability. Computed fresh on
// every evaluation cycle and never persisted.
type ValueEdge struct {
	SelectionID string  `json:"selection_id"`
	PModel      float64 `json:"p_model"`
	PMarket     float64 `json:"p_market"`
	Odds        float64 `json:"odds"`
	Edge        float64 `json:"edge"`
	HasValue    bool    `json:"has_value"`
}
