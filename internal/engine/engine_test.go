package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/edge"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/repository"
	"github.com/yourusername/oddsmith/internal/risk"
	"github.com/yourusername/oddsmith/internal/staking"
)

type fakeProbs struct {
	probs map[string]float64
	err   error
}

func (f *fakeProbs) Probabilities(ctx context.Context, contest *models.Contest) (map[string]float64, error) {
	return f.probs, f.err
}

type fakeQuotes struct {
	quotes map[string]models.MarketQuote
	err    error
}

func (f *fakeQuotes) Quotes(ctx context.Context, contestID uuid.UUID) (map[string]models.MarketQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

type recordingSink struct {
	placed []models.StakeRecommendation
	err    error
}

func (s *recordingSink) Place(ctx context.Context, contestID uuid.UUID, rec models.StakeRecommendation, simulationOnly bool) error {
	if s.err != nil {
		return s.err
	}
	s.placed = append(s.placed, rec)
	return nil
}

func testContest() *models.Contest {
	return &models.Contest{
		ID:        uuid.New(),
		Venue:     "kempton",
		StartTime: time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC),
		Quotes: map[string]models.MarketQuote{
			"fav": {SelectionID: "fav", Odds: 4.0},
			"out": {SelectionID: "out", Odds: 4.0},
		},
		WinnerID: "fav",
	}
}

func newTestEngine(t *testing.T, probs ProbabilityProvider, quotes *fakeQuotes, sink ExecutionSink) (*Engine, *risk.Controller) {
	t.Helper()

	stakingCfg := config.StakingConfig{
		EdgeThreshold:      0.05,
		KellyFraction:      0.25,
		MaxStakePct:        0.05,
		PortfolioBudgetPct: 0.5,
	}
	riskCfg := config.RiskConfig{
		StartingBankroll: 1000,
		DailyStopLossPct: 0.5,
		MaxDrawdownPct:   0.9,
		CooldownHours:    24,
		MaxBetsPerDay:    10,
		MaxLossStreak:    100,
	}
	controller := risk.NewController(riskCfg, nil)

	opts := Options{
		Probabilities: probs,
		Evaluator:     edge.NewEvaluator(stakingCfg.EdgeThreshold, nil),
		Sizer:         staking.NewSizer(stakingCfg, nil),
		Controller:    controller,
		Sink:          sink,
		Settlements:   repository.NewMemorySettlementRepository(),
	}
	if quotes != nil {
		opts.Quotes = quotes
	}
	eng, err := New(opts)
	require.NoError(t, err)
	return eng, controller
}

func TestNewRequiresCoreCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestDecideContestPlacesApprovedStakes(t *testing.T) {
	sink := &recordingSink{}
	probs := &fakeProbs{probs: map[string]float64{"fav": 0.35, "out": 0.10}}
	eng, _ := newTestEngine(t, probs, nil, sink)

	decisions, err := eng.DecideContest(context.Background(), testContest())
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.True(t, decisions[0].Approved)
	require.Len(t, sink.placed, 1)
	assert.Equal(t, "fav", sink.placed[0].SelectionID)
	assert.InDelta(t, 33.33, sink.placed[0].StakeAmount, 0.01)
}

func TestDecideContestGatedStakesAreNotPlaced(t *testing.T) {
	sink := &recordingSink{}
	probs := &fakeProbs{probs: map[string]float64{"fav": 0.35}}
	eng, controller := newTestEngine(t, probs, nil, sink)

	controller.Halt("maintenance")

	decisions, err := eng.DecideContest(context.Background(), testContest())
	require.NoError(t, err)
	require.Len(t, decisions, 1)

	assert.False(t, decisions[0].Approved)
	assert.Equal(t, risk.ReasonHalted, decisions[0].Reason)
	assert.Empty(t, sink.placed)
}

func TestDecideContestSinkFailureIsNotFatal(t *testing.T) {
	sink := &recordingSink{err: fmt.Errorf("exchange unreachable")}
	probs := &fakeProbs{probs: map[string]float64{"fav": 0.35}}
	eng, _ := newTestEngine(t, probs, nil, sink)

	decisions, err := eng.DecideContest(context.Background(), testContest())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Approved)
}

func TestDecideContestFallsBackToEmbeddedQuotes(t *testing.T) {
	sink := &recordingSink{}
	probs := &fakeProbs{probs: map[string]float64{"fav": 0.35}}
	quotes := &fakeQuotes{err: models.ErrNotFound}
	eng, _ := newTestEngine(t, probs, quotes, sink)

	// The live provider has nothing for this contest; the embedded
	// snapshot still carries odds of 4.0 for the favourite.
	decisions, err := eng.DecideContest(context.Background(), testContest())
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Approved)
}

func TestDecideContestProbabilityErrorFailsCycle(t *testing.T) {
	probs := &fakeProbs{err: fmt.Errorf("model timeout")}
	eng, _ := newTestEngine(t, probs, nil, &recordingSink{})

	_, err := eng.DecideContest(context.Background(), testContest())
	require.Error(t, err)

	// The failure is accounted in the diagnostic window.
	batch := eng.DrainBatch()
	assert.Equal(t, 1, batch.Attempts)
	assert.Equal(t, 1, batch.Errors)
}

func TestRecordSettlementIsIdempotent(t *testing.T) {
	probs := &fakeProbs{probs: map[string]float64{"fav": 0.35}}
	eng, controller := newTestEngine(t, probs, nil, &recordingSink{})

	s := &models.Settlement{
		BetID:       uuid.New(),
		ContestID:   uuid.New(),
		SelectionID: "fav",
		Stake:       decimal.NewFromFloat(30),
		Returns:     decimal.NewFromFloat(120),
		Outcome:     models.BetOutcomeWin,
		SettledAt:   time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC),
	}

	require.NoError(t, eng.RecordSettlement(context.Background(), s))
	assert.InDelta(t, 1090.0, controller.Snapshot().CurrentBalance, 1e-9)

	// Redelivery of the same bet ID changes nothing.
	require.NoError(t, eng.RecordSettlement(context.Background(), s))
	assert.InDelta(t, 1090.0, controller.Snapshot().CurrentBalance, 1e-9)
}

func TestDrainBatchResetsWindow(t *testing.T) {
	probs := &fakeProbs{probs: map[string]float64{"fav": 0.35, "ghost": 0.2}}
	eng, _ := newTestEngine(t, probs, nil, &recordingSink{})

	// "ghost" has no quote: half the probabilities lack usable market data.
	_, err := eng.DecideContest(context.Background(), testContest())
	require.NoError(t, err)

	batch := eng.DrainBatch()
	assert.Equal(t, 1, batch.Attempts)
	assert.InDelta(t, 0.5, batch.MissingDataRate, 1e-12)
	assert.Len(t, batch.Probabilities, 2)

	// The window starts over after a drain.
	empty := eng.DrainBatch()
	assert.Equal(t, 0, empty.Attempts)
	assert.Empty(t, empty.Probabilities)
}
