package backtest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func curveOf(values ...float64) EquityCurve {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	curve := make(EquityCurve, 0, len(values))
	for i, v := range values {
		curve = append(curve, EquityPoint{Time: base.Add(time.Duration(i) * time.Hour), Value: v})
	}
	return curve
}

func TestMaxDrawdown(t *testing.T) {
	// Peak 1200, trough 900: drawdown 25%.
	curve := curveOf(1000, 1200, 900, 1100)
	assert.InDelta(t, 0.25, curve.MaxDrawdown(), 1e-12)

	// Monotonic growth never draws down.
	assert.Equal(t, 0.0, curveOf(1000, 1100, 1200).MaxDrawdown())

	assert.Equal(t, 0.0, EquityCurve{}.MaxDrawdown())
}

func TestGetReturns(t *testing.T) {
	curve := curveOf(1000, 1100, 990)
	returns := curve.GetReturns()

	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)

	assert.Empty(t, curveOf(1000).GetReturns())
}

func TestGetVolatility(t *testing.T) {
	// Constant returns: zero volatility.
	assert.InDelta(t, 0.0, curveOf(1000, 1100, 1210).GetVolatility(), 1e-12)
	assert.Greater(t, curveOf(1000, 1100, 990).GetVolatility(), 0.0)
}

func TestToCSV(t *testing.T) {
	csv := curveOf(1000, 1100).ToCSV()
	lines := strings.Split(strings.TrimSpace(csv), "\n")

	assert.Len(t, lines, 3)
	assert.Equal(t, "time,value,drawdown", lines[0])
	assert.Contains(t, lines[1], "1000.000000")
}
