package edge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/models"
)

func quote(id string, odds float64) models.MarketQuote {
	return models.MarketQuote{SelectionID: id, Odds: odds}
}

func TestEvaluateComputesEdge(t *testing.T) {
	e := NewEvaluator(0.05, nil)

	probs := map[string]float64{"runner-1": 0.35}
	quotes := map[string]models.MarketQuote{"runner-1": quote("runner-1", 4.0)}

	edges := e.Evaluate(probs, quotes)
	require.Len(t, edges, 1)

	edge := edges[0]
	assert.Equal(t, "runner-1", edge.SelectionID)
	assert.InDelta(t, 0.25, edge.PMarket, 1e-12)
	assert.InDelta(t, 0.10, edge.Edge, 1e-12)
	assert.True(t, edge.HasValue)
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	e := NewEvaluator(0.05, nil)

	quotes := map[string]models.MarketQuote{
		"at":    quote("at", 4.0),    // edge exactly 0.05
		"below": quote("below", 4.0), // edge 0.04
	}
	probs := map[string]float64{"at": 0.30, "below": 0.29}

	edges := e.Evaluate(probs, quotes)
	require.Len(t, edges, 2)

	byID := map[string]models.ValueEdge{}
	for _, ve := range edges {
		byID[ve.SelectionID] = ve
	}
	assert.True(t, byID["at"].HasValue, "edge equal to threshold has value")
	assert.False(t, byID["below"].HasValue)
}

func TestEvaluateSkipsMissingAndMalformedQuotes(t *testing.T) {
	e := NewEvaluator(0.05, nil)

	probs := map[string]float64{
		"no-quote":  0.4,
		"bad-odds":  0.4,
		"even-odds": 0.4,
		"good":      0.4,
	}
	quotes := map[string]models.MarketQuote{
		"bad-odds":  quote("bad-odds", 0.5),
		"even-odds": quote("even-odds", 1.0),
		"good":      quote("good", 3.0),
	}

	edges := e.Evaluate(probs, quotes)
	require.Len(t, edges, 1)
	assert.Equal(t, "good", edges[0].SelectionID)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := NewEvaluator(0.0, nil)

	probs := map[string]float64{"c": 0.3, "a": 0.2, "b": 0.5}
	quotes := map[string]models.MarketQuote{
		"a": quote("a", 5.0),
		"b": quote("b", 2.0),
		"c": quote("c", 3.5),
	}

	first := e.Evaluate(probs, quotes)
	for i := 0; i < 10; i++ {
		again := e.Evaluate(probs, quotes)
		assert.Equal(t, first, again)
	}
	// Ordered by selection ID.
	require.Len(t, first, 3)
	assert.Equal(t, "a", first[0].SelectionID)
	assert.Equal(t, "b", first[1].SelectionID)
	assert.Equal(t, "c", first[2].SelectionID)
}

func TestEvaluateEmptyInputs(t *testing.T) {
	e := NewEvaluator(0.05, nil)

	assert.Empty(t, e.Evaluate(nil, nil))
	assert.Empty(t, e.Evaluate(map[string]float64{}, map[string]models.MarketQuote{}))
}
