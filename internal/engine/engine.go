// Package engine runs the per-contest decision cycle: fetch probabilities
// and quotes, evaluate edges, size stakes, gate them through the risk
// controller and hand approvals to the execution sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/edge"
	"github.com/yourusername/oddsmith/internal/logger"
	"github.com/yourusername/oddsmith/internal/marketdata"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/repository"
	"github.com/yourusername/oddsmith/internal/risk"
	"github.com/yourusername/oddsmith/internal/safemode"
	"github.com/yourusername/oddsmith/internal/staking"
)

// ProbabilityProvider supplies calibrated win probabilities for a contest.
type ProbabilityProvider interface {
	Probabilities(ctx context.Context, contest *models.Contest) (map[string]float64, error)
}

// ExecutionSink receives approved stake recommendations. The advisory
// deployment logs them; a live deployment forwards them to an exchange
// client.
type ExecutionSink interface {
	Place(ctx context.Context, contestID uuid.UUID, rec models.StakeRecommendation, simulationOnly bool) error
}

// AdvisorySink is the default sink: recommendations are audit-logged and
// never forwarded anywhere.
type AdvisorySink struct {
	audit *logger.AuditLogger
}

// NewAdvisorySink creates an advisory execution sink.
func NewAdvisorySink(audit *logger.AuditLogger) *AdvisorySink {
	return &AdvisorySink{audit: audit}
}

// Place implements ExecutionSink.
func (s *AdvisorySink) Place(ctx context.Context, contestID uuid.UUID, rec models.StakeRecommendation, simulationOnly bool) error {
	s.audit.LogStakeRecommendation(contestID.String(), rec.SelectionID,
		rec.Edge, rec.RawKellyFraction, rec.CappedStakeFraction, rec.StakeAmount, rec.Odds, time.Now().UTC())
	return nil
}

// Engine coordinates one decision cycle per contest and accumulates the
// observation window the safe-mode diagnostician reads.
type Engine struct {
	probs       ProbabilityProvider
	quotes      marketdata.QuoteProvider
	evaluator   *edge.Evaluator
	sizer       *staking.Sizer
	controller  *risk.Controller
	sink        ExecutionSink
	settlements repository.SettlementRepository
	audit       *logger.AuditLogger
	logger      *logrus.Logger

	batchMu sync.Mutex
	batch   safemode.Batch
}

// Options bundles the engine's collaborators.
type Options struct {
	Probabilities ProbabilityProvider
	Quotes        marketdata.QuoteProvider
	Evaluator     *edge.Evaluator
	Sizer         *staking.Sizer
	Controller    *risk.Controller
	Sink          ExecutionSink
	Settlements   repository.SettlementRepository
	Audit         *logger.AuditLogger
	Logger        *logrus.Logger
}

// New creates a decision engine.
func New(opts Options) (*Engine, error) {
	if opts.Probabilities == nil || opts.Evaluator == nil || opts.Sizer == nil || opts.Controller == nil {
		return nil, fmt.Errorf("probabilities, evaluator, sizer and controller are required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Audit == nil {
		opts.Audit = logger.NewAuditLogger(opts.Logger)
	}
	if opts.Sink == nil {
		opts.Sink = NewAdvisorySink(opts.Audit)
	}
	return &Engine{
		probs:       opts.Probabilities,
		quotes:      opts.Quotes,
		evaluator:   opts.Evaluator,
		sizer:       opts.Sizer,
		controller:  opts.Controller,
		sink:        opts.Sink,
		settlements: opts.Settlements,
		audit:       opts.Audit,
		logger:      opts.Logger,
	}, nil
}

// DecideContest runs one full decision cycle for a contest. Probabilities
// and quotes are fetched concurrently; everything after that is
// deterministic given the fetched inputs.
func (e *Engine) DecideContest(ctx context.Context, contest *models.Contest) ([]risk.Decision, error) {
	started := time.Now()
	defer func() {
		metrics.DecisionCycleDuration.Observe(time.Since(started).Seconds())
	}()
	metrics.DecisionCyclesTotal.Inc()

	probs, quotes, err := e.fetchInputs(ctx, contest)
	if err != nil {
		e.noteError()
		return nil, err
	}
	e.noteAttempt(probs, quotes)

	snapshot := e.controller.Snapshot()
	edges := e.evaluator.Evaluate(probs, quotes)
	recs := e.sizer.Size(edges, snapshot.CurrentBalance)
	metrics.StakesRecommendedTotal.Add(float64(len(recs)))

	decisions := make([]risk.Decision, 0, len(recs))
	for _, rec := range recs {
		decision, err := e.controller.RequestStake(rec, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("stake request for %s: %w", rec.SelectionID, err)
		}
		decisions = append(decisions, decision)

		if !decision.Approved {
			e.audit.LogRiskGate(contest.ID.String(), rec.SelectionID, decision.Reason, rec.StakeAmount)
			continue
		}
		if err := e.sink.Place(ctx, contest.ID, decision.Recommendation, decision.SimulationOnly); err != nil {
			// The stake was approved and counted; a sink failure is an
			// execution problem, not a decision problem.
			e.logger.WithFields(logrus.Fields{
				"contest_id":   contest.ID,
				"selection_id": rec.SelectionID,
				"error":        err.Error(),
			}).Error("Execution sink failed to place recommendation")
		}
	}

	e.logger.WithFields(logrus.Fields{
		"contest_id":      contest.ID,
		"edges":           len(edges),
		"recommendations": len(recs),
		"balance":         snapshot.CurrentBalance,
	}).Info("Decision cycle completed")

	return decisions, nil
}

// RecordSettlement persists a settlement and applies it to the bankroll.
// Redelivered settlements (duplicate bet IDs) are ignored so the operation
// is idempotent.
func (e *Engine) RecordSettlement(ctx context.Context, s *models.Settlement) error {
	if e.settlements != nil {
		if err := e.settlements.Create(ctx, s); err != nil {
			if errors.Is(err, models.ErrDuplicateKey) {
				e.logger.WithField("bet_id", s.BetID).Debug("Duplicate settlement ignored")
				return nil
			}
			return fmt.Errorf("failed to persist settlement: %w", err)
		}
	}

	stake, _ := s.Stake.Float64()
	returns, _ := s.Returns.Float64()
	if err := e.controller.RecordResult(stake, returns, s.Outcome, s.SettledAt); err != nil {
		return err
	}

	profit, _ := s.Profit().Float64()
	e.audit.LogSettlement(s.BetID.String(), stake, returns, profit, e.controller.Snapshot().CurrentBalance)
	e.noteResult(s.Outcome)
	return nil
}

// RollOverDay forwards the daily reset to the risk controller.
func (e *Engine) RollOverDay(now time.Time) {
	e.controller.RollOverDay(now)
}

// DrainBatch returns the accumulated observation window and starts a new
// one. Called by the scheduled diagnostic pass.
func (e *Engine) DrainBatch() safemode.Batch {
	e.batchMu.Lock()
	defer e.batchMu.Unlock()

	batch := e.batch
	if batch.Attempts > 0 {
		batch.MissingDataRate /= float64(batch.Attempts)
	}
	e.batch = safemode.Batch{}
	return batch
}

// fetchInputs loads probabilities and quotes concurrently. Quotes fall back
// to the contest's embedded snapshot when no live provider is wired.
func (e *Engine) fetchInputs(ctx context.Context, contest *models.Contest) (map[string]float64, map[string]models.MarketQuote, error) {
	var (
		wg        sync.WaitGroup
		probs     map[string]float64
		probsErr  error
		quotes    map[string]models.MarketQuote
		quotesErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		probs, probsErr = e.probs.Probabilities(ctx, contest)
	}()

	if e.quotes != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			quotes, quotesErr = e.quotes.Quotes(ctx, contest.ID)
		}()
	}
	wg.Wait()

	if probsErr != nil {
		return nil, nil, fmt.Errorf("probability fetch for contest %s: %w", contest.ID, probsErr)
	}
	if e.quotes == nil || errors.Is(quotesErr, models.ErrNotFound) {
		quotes = contest.Quotes
	} else if quotesErr != nil {
		return nil, nil, fmt.Errorf("quote fetch for contest %s: %w", contest.ID, quotesErr)
	}
	return probs, quotes, nil
}

func (e *Engine) noteAttempt(probs map[string]float64, quotes map[string]models.MarketQuote) {
	missing := 0
	for id := range probs {
		if q, ok := quotes[id]; !ok || !q.IsUsable() {
			missing++
		}
	}
	rate := 0.0
	if len(probs) > 0 {
		rate = float64(missing) / float64(len(probs))
	}

	e.batchMu.Lock()
	defer e.batchMu.Unlock()
	e.batch.Attempts++
	e.batch.MissingDataRate += rate
	for _, p := range probs {
		e.batch.Probabilities = append(e.batch.Probabilities, p)
	}
}

func (e *Engine) noteError() {
	e.batchMu.Lock()
	defer e.batchMu.Unlock()
	e.batch.Attempts++
	e.batch.Errors++
}

func (e *Engine) noteResult(outcome models.BetOutcome) {
	e.batchMu.Lock()
	defer e.batchMu.Unlock()
	e.batch.Results = append(e.batch.Results, outcome)
}
