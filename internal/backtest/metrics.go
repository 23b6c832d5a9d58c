package backtest

import (
	"encoding/json"
	"math"
)

// FoldResult is the performance summary of one fold. A fold with zero
// qualifying bets is a valid zero-activity result, not an error.
type FoldResult struct {
	Window      FoldWindow  `json:"window"`
	ROI         float64     `json:"roi"`
	TotalProfit float64     `json:"total_profit"`
	WinRate     float64     `json:"win_rate"`
	SharpeRatio float64     `json:"sharpe_ratio"`
	MaxDrawdown float64     `json:"max_drawdown"`
	TotalBets   int         `json:"total_bets"`
	WinningBets int         `json:"winning_bets"`
	Gated       int         `json:"gated"`
	Curve       EquityCurve `json:"equity_curve,omitempty"`
}

// ToJSON exports the fold result to JSON
func (r FoldResult) ToJSON() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// Summary aggregates fold results across a run.
type Summary struct {
	Folds          []FoldResult `json:"folds"`
	MeanROI        float64      `json:"mean_roi"`
	MeanSharpe     float64      `json:"mean_sharpe"`
	WorstDrawdown  float64      `json:"worst_drawdown"`
	TotalBets      int          `json:"total_bets"`
	ProfitableFrac float64      `json:"profitable_fraction"`
}

// Summarize aggregates per-fold results into a run summary.
func Summarize(folds []FoldResult) Summary {
	s := Summary{Folds: folds}
	if len(folds) == 0 {
		return s
	}

	profitable := 0
	for _, f := range folds {
		s.MeanROI += f.ROI
		s.MeanSharpe += f.SharpeRatio
		s.TotalBets += f.TotalBets
		if f.MaxDrawdown > s.WorstDrawdown {
			s.WorstDrawdown = f.MaxDrawdown
		}
		if f.TotalProfit > 0 {
			profitable++
		}
	}
	n := float64(len(folds))
	s.MeanROI /= n
	s.MeanSharpe /= n
	s.ProfitableFrac = float64(profitable) / n
	return s
}

// sharpeRatio computes the annualization-free Sharpe ratio of the
// per-contest-group return series.
func sharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std
}
