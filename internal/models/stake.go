package models

// StakeRecommendation is the stake sizer's output for one contestant.
// StakeAmount is in currency units and is always >= 0 and bounded by the
// configured per-bet cap times the bankroll at sizing time.
type StakeRecommendation struct {
	SelectionID         string  `json:"selection_id"`
	Odds                float64 `json:"odds"`
	Edge                float64 `json:"edge"`
	RawKellyFraction    float64 `json:"raw_kelly_fraction"`
	CappedStakeFraction float64 `json:"capped_stake_fraction"`
	StakeAmount         float64 `json:"stake_amount"`
}
