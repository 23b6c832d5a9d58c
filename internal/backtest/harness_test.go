package backtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/models"
)

func testHarnessConfig() Config {
	return Config{
		InitialBankroll: 1000,
		CommissionRate:  0,
		Staking: config.StakingConfig{
			EdgeThreshold:      0.05,
			KellyFraction:      0.25,
			MaxStakePct:        0.05,
			PortfolioBudgetPct: 0.5,
		},
		Risk: config.RiskConfig{
			DailyStopLossPct: 0.5,
			MaxDrawdownPct:   0.9,
			CooldownHours:    24,
			MaxBetsPerDay:    10,
			MaxLossStreak:    100,
		},
	}
}

// favPolicy always rates the favourite at 0.35 against market odds of 4.0,
// a fixed 10% edge on every contest.
func favPolicy() PolicyFactory {
	return StaticPolicy(ProbabilityFunc(func(ctx context.Context, c *models.Contest) (map[string]float64, error) {
		return map[string]float64{"fav": 0.35, "out": 0.10}, nil
	}))
}

// dailyHistory spaces contests 25 hours apart so each lands on its own
// calendar day.
func dailyHistory(n int, winnerID string) []*models.Contest {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*models.Contest, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, contestAt(base.Add(time.Duration(i)*25*time.Hour), winnerID))
	}
	return out
}

func TestNewHarnessValidation(t *testing.T) {
	cfg := testHarnessConfig()

	cfg.InitialBankroll = 0
	_, err := NewHarness(cfg, nil)
	assert.Error(t, err)

	cfg = testHarnessConfig()
	cfg.CommissionRate = 0.2
	_, err = NewHarness(cfg, nil)
	assert.Error(t, err)

	cfg = testHarnessConfig()
	cfg.CommissionRate = -0.01
	_, err = NewHarness(cfg, nil)
	assert.Error(t, err)
}

func TestRunCompoundsWinningFolds(t *testing.T) {
	h, err := NewHarness(testHarnessConfig(), nil)
	require.NoError(t, err)

	// 12 contests, 2 folds: each fold tests 4 contests, all won by the
	// favourite. Every bet stakes 1/30 of the balance at odds 4.0, so the
	// balance grows 10% per contest: 1000 * 1.1^4.
	history := dailyHistory(12, "fav")
	results, err := h.Run(context.Background(), favPolicy(), history, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, fold := range results {
		assert.Equal(t, 4, fold.TotalBets)
		assert.Equal(t, 4, fold.WinningBets)
		assert.Equal(t, 1.0, fold.WinRate)
		assert.Equal(t, 0, fold.Gated)
		assert.InDelta(t, 464.10, fold.TotalProfit, 0.01)
		assert.InDelta(t, 0.4641, fold.ROI, 1e-4)
		assert.Equal(t, 0.0, fold.MaxDrawdown)
		// Identical per-contest returns have zero variance.
		assert.Equal(t, 0.0, fold.SharpeRatio)
	}
}

func TestRunGatesAfterLossStreak(t *testing.T) {
	cfg := testHarnessConfig()
	cfg.Risk.MaxLossStreak = 3
	h, err := NewHarness(cfg, nil)
	require.NoError(t, err)

	// The favourite never wins. Three straight losses trip the streak
	// limit; later contests are gated, never staked.
	history := dailyHistory(10, "out")
	results, err := h.Run(context.Background(), favPolicy(), history, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	fold := results[0]
	assert.Equal(t, 3, fold.TotalBets)
	assert.Equal(t, 0, fold.WinningBets)
	assert.Equal(t, 0.0, fold.WinRate)
	assert.Greater(t, fold.Gated, 0)
	assert.Less(t, fold.TotalProfit, 0.0)
	assert.Greater(t, fold.MaxDrawdown, 0.0)
}

func TestRunAppliesCommissionToWinnings(t *testing.T) {
	cfg := testHarnessConfig()
	cfg.CommissionRate = 0.05
	h, err := NewHarness(cfg, nil)
	require.NoError(t, err)

	// One fold, one test contest: stake 33.33 at odds 4.0 wins
	// 3 * 33.33 * 0.95 = 95.00 profit.
	history := dailyHistory(2, "fav")
	results, err := h.Run(context.Background(), favPolicy(), history, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 1, results[0].TotalBets)
	assert.InDelta(t, 95.00, results[0].TotalProfit, 0.01)
}

func TestRunSkipsUnsettledContests(t *testing.T) {
	h, err := NewHarness(testHarnessConfig(), nil)
	require.NoError(t, err)

	// Zero-activity folds are valid results, not errors.
	history := dailyHistory(8, "")
	results, err := h.Run(context.Background(), favPolicy(), history, 2)
	require.NoError(t, err)

	for _, fold := range results {
		assert.Equal(t, 0, fold.TotalBets)
		assert.Equal(t, 0.0, fold.ROI)
		assert.Equal(t, 0.0, fold.WinRate)
	}
}

func TestRunSkipsContestsWhosePolicyErrors(t *testing.T) {
	h, err := NewHarness(testHarnessConfig(), nil)
	require.NoError(t, err)

	history := dailyHistory(6, "fav")
	flaky := StaticPolicy(ProbabilityFunc(func(ctx context.Context, c *models.Contest) (map[string]float64, error) {
		if c.ID == history[4].ID {
			return nil, fmt.Errorf("model unavailable")
		}
		return map[string]float64{"fav": 0.35}, nil
	}))

	results, err := h.Run(context.Background(), flaky, history, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// 3 test contests, one skipped on the policy error.
	assert.Equal(t, 2, results[0].TotalBets)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	h, err := NewHarness(testHarnessConfig(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = h.Run(ctx, favPolicy(), dailyHistory(8, "fav"), 2)
	assert.Error(t, err)
}

func TestRunFactoryErrorFailsRun(t *testing.T) {
	h, err := NewHarness(testHarnessConfig(), nil)
	require.NoError(t, err)

	factory := func(FoldWindow) (ProbabilitySource, error) {
		return nil, fmt.Errorf("no training data")
	}
	_, err = h.Run(context.Background(), factory, dailyHistory(8, "fav"), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no training data")
}
