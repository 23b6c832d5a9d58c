package backtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/edge"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/risk"
	"github.com/yourusername/oddsmith/internal/staking"
)

// ProbabilitySource supplies win probabilities for a contest. In a live
// replay this is typically a calibrator wrapped around an external model;
// the harness treats it as opaque.
type ProbabilitySource interface {
	Probabilities(ctx context.Context, contest *models.Contest) (map[string]float64, error)
}

// ProbabilityFunc adapts a function to the ProbabilitySource interface.
type ProbabilityFunc func(ctx context.Context, contest *models.Contest) (map[string]float64, error)

// Probabilities implements ProbabilitySource.
func (f ProbabilityFunc) Probabilities(ctx context.Context, contest *models.Contest) (map[string]float64, error) {
	return f(ctx, contest)
}

// Config holds the harness settings. The simulated bankroll is reset per
// fold: fold metrics are independent of one another, which also lets folds
// run concurrently without sharing mutable state.
type Config struct {
	InitialBankroll float64
	CommissionRate  float64
	Staking         config.StakingConfig
	Risk            config.RiskConfig
}

// Harness replays the live pipeline (edge evaluation, stake sizing, risk
// gating, settlement) over historical test windows.
type Harness struct {
	cfg    Config
	logger *logrus.Logger
}

// NewHarness creates a backtest harness.
func NewHarness(cfg Config, logger *logrus.Logger) (*Harness, error) {
	if cfg.InitialBankroll <= 0 {
		return nil, fmt.Errorf("initial bankroll must be positive")
	}
	if cfg.CommissionRate < 0 || cfg.CommissionRate > 0.1 {
		return nil, fmt.Errorf("commission rate must be between 0 and 0.1")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Harness{cfg: cfg, logger: logger}, nil
}

// Run splits history chronologically, builds a policy per fold from its
// training window and replays every test window. Folds execute
// concurrently; each fold owns an isolated simulated bankroll.
func (h *Harness) Run(ctx context.Context, factory PolicyFactory, history []*models.Contest, nFolds int) ([]FoldResult, error) {
	started := time.Now()
	folds, err := Split(history, nFolds)
	if err != nil {
		return nil, err
	}

	results := make([]FoldResult, len(folds))
	errs := make([]error, len(folds))

	var wg sync.WaitGroup
	for i := range folds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			policy, err := factory(folds[i])
			if err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = h.runFold(ctx, policy, folds[i])
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", folds[i].Index, err)
		}
	}

	metrics.BacktestDuration.Observe(time.Since(started).Seconds())
	h.logger.WithFields(logrus.Fields{
		"folds":    len(folds),
		"contests": len(history),
		"duration": time.Since(started),
	}).Info("Backtest run completed")

	return results, nil
}

// runFold replays one fold's test window against a fold-local bankroll.
func (h *Harness) runFold(ctx context.Context, policy ProbabilitySource, fold FoldWindow) (FoldResult, error) {
	riskCfg := h.cfg.Risk
	riskCfg.StartingBankroll = h.cfg.InitialBankroll

	foldLogger := h.logger
	controller := risk.NewController(riskCfg, foldLogger)
	evaluator := edge.NewEvaluator(h.cfg.Staking.EdgeThreshold, foldLogger)
	sizer := staking.NewSizer(h.cfg.Staking, foldLogger)

	result := FoldResult{Window: fold}
	curve := EquityCurve{}
	groupReturns := []float64{}

	var lastDay time.Time
	if len(fold.Test) > 0 {
		start := fold.Test[0].StartTime
		curve = append(curve, EquityPoint{Time: start, Value: h.cfg.InitialBankroll})
	}

	for _, contest := range fold.Test {
		if err := ctx.Err(); err != nil {
			return FoldResult{}, err
		}
		if !contest.HasResult() {
			// Unsettled history cannot be replayed.
			continue
		}

		day := contest.StartTime.Truncate(24 * time.Hour)
		if !day.Equal(lastDay) {
			controller.RollOverDay(contest.StartTime)
			lastDay = day
		}

		probs, err := policy.Probabilities(ctx, contest)
		if err != nil {
			// Probability failures are expected input noise in replay,
			// identical to the live path: skip the contest, keep going.
			foldLogger.WithFields(logrus.Fields{
				"contest_id": contest.ID,
				"error":      err.Error(),
			}).Warn("Probability source failed for contest, skipping")
			continue
		}

		before := controller.Snapshot().CurrentBalance
		edges := evaluator.Evaluate(probs, contest.Quotes)
		recs := sizer.Size(edges, before)

		for _, rec := range recs {
			decision, err := controller.RequestStake(rec, contest.StartTime)
			if err != nil {
				return FoldResult{}, err
			}
			if !decision.Approved {
				result.Gated++
				continue
			}

			stake := decision.Recommendation.StakeAmount
			returns := 0.0
			outcome := models.BetOutcomeLose
			if contest.IsWinner(rec.SelectionID) {
				profit := (rec.Odds - 1.0) * stake * (1 - h.cfg.CommissionRate)
				returns = stake + profit
				outcome = models.BetOutcomeWin
				result.WinningBets++
			}
			if err := controller.RecordResult(stake, returns, outcome, contest.StartTime); err != nil {
				return FoldResult{}, err
			}
			result.TotalBets++
		}

		after := controller.Snapshot().CurrentBalance
		if after != before {
			curve = append(curve, EquityPoint{
				Time:     contest.StartTime,
				Value:    after,
				Drawdown: controller.Snapshot().Drawdown(),
			})
		}
		if before > 0 {
			groupReturns = append(groupReturns, (after-before)/before)
		}
	}

	final := controller.Snapshot().CurrentBalance
	result.TotalProfit = final - h.cfg.InitialBankroll
	result.ROI = result.TotalProfit / h.cfg.InitialBankroll
	if result.TotalBets > 0 {
		result.WinRate = float64(result.WinningBets) / float64(result.TotalBets)
	}
	result.SharpeRatio = sharpeRatio(groupReturns)
	result.MaxDrawdown = curve.MaxDrawdown()
	result.Curve = curve

	return result, nil
}
