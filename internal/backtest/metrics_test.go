package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	folds := []FoldResult{
		{ROI: 0.10, SharpeRatio: 1.0, TotalBets: 20, TotalProfit: 100, MaxDrawdown: 0.05},
		{ROI: -0.02, SharpeRatio: -0.5, TotalBets: 10, TotalProfit: -20, MaxDrawdown: 0.15},
	}

	s := Summarize(folds)
	assert.InDelta(t, 0.04, s.MeanROI, 1e-12)
	assert.InDelta(t, 0.25, s.MeanSharpe, 1e-12)
	assert.Equal(t, 30, s.TotalBets)
	assert.InDelta(t, 0.15, s.WorstDrawdown, 1e-12)
	assert.InDelta(t, 0.5, s.ProfitableFrac, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Empty(t, s.Folds)
	assert.Equal(t, 0.0, s.MeanROI)
	assert.Equal(t, 0, s.TotalBets)
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio(nil))
	// Zero variance yields zero, not infinity.
	assert.Equal(t, 0.0, sharpeRatio([]float64{0.1, 0.1, 0.1}))
	// Symmetric returns have zero mean.
	assert.InDelta(t, 0.0, sharpeRatio([]float64{0.1, -0.1}), 1e-12)
	// All-positive returns score positive.
	assert.Greater(t, sharpeRatio([]float64{0.05, 0.10, 0.15}), 0.0)
}
