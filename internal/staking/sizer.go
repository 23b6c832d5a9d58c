// Package staking converts value edges into bounded stake recommendations
// using fractional, portfolio-aware Kelly sizing.
package staking

import (
	"math"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/models"
)

// Sizer sizes stakes for one evaluation batch at a time.
type Sizer struct {
	cfg    config.StakingConfig
	logger *logrus.Logger
}

// NewSizer creates a stake sizer.
func NewSizer(cfg config.StakingConfig, logger *logrus.Logger) *Sizer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sizer{cfg: cfg, logger: logger}
}

// Size produces stake recommendations for every edge with value in the
// batch. Stakes are individually capped at MaxStakePct of bankroll, then
// the whole batch is scaled down proportionally if its sum would exceed
// PortfolioBudgetPct of bankroll. Contestants without value are omitted.
func (s *Sizer) Size(edges []models.ValueEdge, bankroll float64) []models.StakeRecommendation {
	if bankroll <= 0 {
		return nil
	}

	recs := make([]models.StakeRecommendation, 0, len(edges))
	for _, e := range edges {
		if !e.HasValue {
			continue
		}
		rec, ok := s.sizeOne(e, bankroll)
		if !ok {
			continue
		}
		recs = append(recs, rec)
	}

	return s.normalizePortfolio(recs, bankroll)
}

// sizeOne computes a single capped fractional-Kelly recommendation.
func (s *Sizer) sizeOne(e models.ValueEdge, bankroll float64) (models.StakeRecommendation, bool) {
	b := e.Odds - 1.0
	// Odds at or below 1.0 are filtered upstream by the edge evaluator;
	// reject here anyway rather than propagate NaN/Inf.
	if b <= 0 {
		s.logger.WithFields(logrus.Fields{
			"selection_id": e.SelectionID,
			"odds":         e.Odds,
		}).Warn("Rejected non-positive Kelly denominator")
		return models.StakeRecommendation{}, false
	}

	p := e.PModel
	q := 1.0 - p
	rawKelly := (b*p - q) / b
	if math.IsNaN(rawKelly) || math.IsInf(rawKelly, 0) {
		return models.StakeRecommendation{}, false
	}
	if rawKelly <= 0 {
		return models.StakeRecommendation{}, false
	}

	fraction := rawKelly * s.cfg.KellyFraction
	if fraction > s.cfg.MaxStakePct {
		fraction = s.cfg.MaxStakePct
	}
	if fraction < 0 {
		fraction = 0
	}

	amount := fraction * bankroll
	if s.cfg.MinStake > 0 && amount < s.cfg.MinStake {
		s.logger.WithFields(logrus.Fields{
			"selection_id": e.SelectionID,
			"stake":        amount,
			"min_stake":    s.cfg.MinStake,
		}).Debug("Stake below minimum, no bet recommended")
		return models.StakeRecommendation{}, false
	}

	return models.StakeRecommendation{
		SelectionID:         e.SelectionID,
		Odds:                e.Odds,
		Edge:                e.Edge,
		RawKellyFraction:    rawKelly,
		CappedStakeFraction: fraction,
		StakeAmount:         amount,
	}, true
}

// normalizePortfolio scales every stake in the batch by the same factor
// when their sum exceeds the portfolio budget, preserving the ratios
// between stakes. This bounds correlated exposure across contestants in
// one contest and across concurrent contests in the same cycle.
func (s *Sizer) normalizePortfolio(recs []models.StakeRecommendation, bankroll float64) []models.StakeRecommendation {
	if len(recs) == 0 {
		return recs
	}

	total := 0.0
	for _, r := range recs {
		total += r.StakeAmount
	}

	budget := s.cfg.PortfolioBudgetPct * bankroll
	if total <= budget {
		return recs
	}

	factor := budget / total
	s.logger.WithFields(logrus.Fields{
		"batch_total": total,
		"budget":      budget,
		"scale":       factor,
		"batch_size":  len(recs),
	}).Info("Portfolio budget exceeded, scaling batch down")

	for i := range recs {
		recs[i].StakeAmount *= factor
		recs[i].CappedStakeFraction *= factor
	}
	return recs
}
