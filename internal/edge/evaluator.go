// Package edge compares calibrated win probabilities against market-implied
// probabilities and flags contestants whose price offers value.
package edge

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
)

// Evaluator computes value edges for one evaluation cycle. It holds no
// state between calls: identical inputs always yield identical outputs.
type Evaluator struct {
	threshold float64
	logger    *logrus.Logger
}

// NewEvaluator creates an edge evaluator with the given value threshold.
func NewEvaluator(threshold float64, logger *logrus.Logger) *Evaluator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Evaluator{threshold: threshold, logger: logger}
}

// Evaluate computes an edge per contestant present in both maps. Contestants
// with no quote or with odds <= 1.0 are skipped, not errored: malformed
// external odds are expected input noise. Skips are logged and counted.
// Results are ordered by selection ID for determinism.
func (e *Evaluator) Evaluate(probs map[string]float64, quotes map[string]models.MarketQuote) []models.ValueEdge {
	ids := make([]string, 0, len(probs))
	for id := range probs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	edges := make([]models.ValueEdge, 0, len(ids))
	for _, id := range ids {
		quote, ok := quotes[id]
		if !ok {
			e.logSkip(id, "missing quote", 0)
			continue
		}
		if !quote.IsUsable() {
			e.logSkip(id, "odds not above 1.0", quote.Odds)
			continue
		}

		pModel := probs[id]
		pMarket := quote.ImpliedProbability()
		diff := pModel - pMarket

		edges = append(edges, models.ValueEdge{
			SelectionID: id,
			PModel:      pModel,
			PMarket:     pMarket,
			Odds:        quote.Odds,
			Edge:        diff,
			HasValue:    diff >= e.threshold,
		})
	}
	return edges
}

func (e *Evaluator) logSkip(selectionID, reason string, odds float64) {
	metrics.QuotesSkippedTotal.Inc()
	e.logger.WithFields(logrus.Fields{
		"selection_id": selectionID,
		"reason":       reason,
		"odds":         odds,
	}).Debug("Contestant skipped during edge evaluation")
}
