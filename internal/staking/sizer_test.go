package staking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/models"
)

func testConfig() config.StakingConfig {
	return config.StakingConfig{
		EdgeThreshold:      0.05,
		KellyFraction:      0.25,
		MaxStakePct:        0.05,
		PortfolioBudgetPct: 0.5,
	}
}

func valueEdge(id string, pModel, odds float64) models.ValueEdge {
	return models.ValueEdge{
		SelectionID: id,
		PModel:      pModel,
		PMarket:     1.0 / odds,
		Odds:        odds,
		Edge:        pModel - 1.0/odds,
		HasValue:    true,
	}
}

func TestSizeFractionalKelly(t *testing.T) {
	s := NewSizer(testConfig(), nil)

	// p = 0.35 at odds 4.0: full Kelly (3*0.35 - 0.65)/3, quartered.
	recs := s.Size([]models.ValueEdge{valueEdge("runner-1", 0.35, 4.0)}, 1000)
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.InDelta(t, 0.13333, rec.RawKellyFraction, 1e-4)
	assert.InDelta(t, 0.03333, rec.CappedStakeFraction, 1e-4)
	assert.InDelta(t, 33.33, rec.StakeAmount, 0.01)
}

func TestSizeKellyMonotonicInEdge(t *testing.T) {
	s := NewSizer(config.StakingConfig{
		KellyFraction:      0.25,
		MaxStakePct:        1.0, // no cap, isolate Kelly behavior
		PortfolioBudgetPct: 1.0,
	}, nil)

	// Same odds, increasing model probability: stakes must not decrease.
	prev := 0.0
	for _, p := range []float64{0.30, 0.35, 0.40, 0.45, 0.50} {
		recs := s.Size([]models.ValueEdge{valueEdge("x", p, 4.0)}, 1000)
		require.Len(t, recs, 1)
		assert.GreaterOrEqual(t, recs[0].StakeAmount, prev)
		prev = recs[0].StakeAmount
	}
}

func TestSizeCapEnforced(t *testing.T) {
	s := NewSizer(testConfig(), nil)

	// Huge edge: raw Kelly far above the 5% cap.
	recs := s.Size([]models.ValueEdge{valueEdge("big", 0.8, 4.0)}, 1000)
	require.Len(t, recs, 1)
	assert.InDelta(t, 0.05, recs[0].CappedStakeFraction, 1e-12)
	assert.InDelta(t, 50.0, recs[0].StakeAmount, 1e-9)
}

func TestSizeSkipsNegativeKelly(t *testing.T) {
	s := NewSizer(testConfig(), nil)

	// Model probability below market-implied: no bet.
	edge := valueEdge("dog", 0.10, 4.0)
	recs := s.Size([]models.ValueEdge{edge}, 1000)
	assert.Empty(t, recs)
}

func TestSizeSkipsNoValueEdges(t *testing.T) {
	s := NewSizer(testConfig(), nil)

	edge := valueEdge("thin", 0.35, 4.0)
	edge.HasValue = false
	recs := s.Size([]models.ValueEdge{edge}, 1000)
	assert.Empty(t, recs)
}

func TestSizeMinStakeFloor(t *testing.T) {
	cfg := testConfig()
	cfg.MinStake = 50.0
	s := NewSizer(cfg, nil)

	recs := s.Size([]models.ValueEdge{valueEdge("small", 0.35, 4.0)}, 1000)
	assert.Empty(t, recs, "stake below the minimum produces no recommendation")
}

func TestSizeZeroBankroll(t *testing.T) {
	s := NewSizer(testConfig(), nil)
	assert.Empty(t, s.Size([]models.ValueEdge{valueEdge("x", 0.35, 4.0)}, 0))
	assert.Empty(t, s.Size([]models.ValueEdge{valueEdge("x", 0.35, 4.0)}, -10))
}

func TestSizePortfolioNormalization(t *testing.T) {
	cfg := config.StakingConfig{
		KellyFraction:      1.0,
		MaxStakePct:        0.3,
		PortfolioBudgetPct: 0.4,
	}
	s := NewSizer(cfg, nil)

	edges := []models.ValueEdge{
		valueEdge("a", 0.8, 4.0),
		valueEdge("b", 0.8, 4.0),
		valueEdge("c", 0.8, 4.0),
	}
	recs := s.Size(edges, 1000)
	require.Len(t, recs, 3)

	// Each would be capped at 300; scaled so the batch sums to 400.
	total := 0.0
	for _, r := range recs {
		total += r.StakeAmount
	}
	assert.InDelta(t, 400.0, total, 1e-6)

	// Proportions preserved: all three equal before and after scaling.
	assert.InDelta(t, recs[0].StakeAmount, recs[1].StakeAmount, 1e-9)
	assert.InDelta(t, recs[1].StakeAmount, recs[2].StakeAmount, 1e-9)
}

func TestSizePortfolioUnderBudgetUntouched(t *testing.T) {
	s := NewSizer(testConfig(), nil)

	edges := []models.ValueEdge{
		valueEdge("a", 0.35, 4.0),
		valueEdge("b", 0.35, 4.0),
	}
	recs := s.Size(edges, 1000)
	require.Len(t, recs, 2)

	// 2 x ~33.33 is well under the 500 budget: no scaling.
	assert.InDelta(t, 33.33, recs[0].StakeAmount, 0.01)
	assert.InDelta(t, 33.33, recs[1].StakeAmount, 0.01)
}
