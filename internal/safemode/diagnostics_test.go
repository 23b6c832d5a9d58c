package safemode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/models"
)

func testSafeModeConfig() config.SafeModeConfig {
	return config.SafeModeConfig{
		LossStreakLength:     6,
		ErrorRateThreshold:   0.3,
		MissingDataThreshold: 0.2,
		CooldownHours:        12,
	}
}

func losses(n int) []models.BetOutcome {
	out := make([]models.BetOutcome, n)
	for i := range out {
		out[i] = models.BetOutcomeLose
	}
	return out
}

func TestDiagnoseHealthyBatchReturnsNil(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	batch := Batch{
		Results:         []models.BetOutcome{models.BetOutcomeWin, models.BetOutcomeLose},
		Attempts:        10,
		Errors:          1,
		MissingDataRate: 0.05,
		Probabilities:   []float64{0.2, 0.35, 0.5, 0.6, 0.8},
	}
	assert.Nil(t, d.Diagnose(batch, time.Now()))
}

func TestDiagnoseSeverityIsMaxNotSum(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	// Six-loss streak (0.7) plus 25% missing data against a 20% threshold
	// (0.6): combined severity is max(0.7, 0.6) = 0.7, not 1.3.
	batch := Batch{
		Results:         losses(6),
		Attempts:        10,
		MissingDataRate: 0.25,
		Probabilities:   []float64{0.2, 0.4, 0.6},
	}

	diag := d.Diagnose(batch, time.Now())
	require.NotNil(t, diag)
	assert.InDelta(t, 0.7, diag.Severity, 1e-12)
	assert.Equal(t, LevelDefensive, diag.Level)
	assert.Len(t, diag.Triggers(), 2)
}

func TestDiagnoseLossStreakRequiresFullWindow(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	// Five losses then a win: the most recent six are not all losses.
	results := append(losses(5), models.BetOutcomeWin)
	assert.Nil(t, d.Diagnose(Batch{Results: results}, time.Now()))

	// A win followed by six losses still fires.
	results = append([]models.BetOutcome{models.BetOutcomeWin}, losses(6)...)
	diag := d.Diagnose(Batch{Results: results}, time.Now())
	require.NotNil(t, diag)
	assert.Equal(t, CauseDrift, diag.Cause)
}

func TestDiagnoseErrorRate(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	diag := d.Diagnose(Batch{Attempts: 10, Errors: 4}, time.Now())
	require.NotNil(t, diag)
	assert.InDelta(t, 0.8, diag.Severity, 1e-12)
	assert.Equal(t, LevelShutdown, diag.Level)
	assert.Equal(t, CauseDataIngestion, diag.Cause)

	// At the threshold exactly: no trigger.
	assert.Nil(t, d.Diagnose(Batch{Attempts: 10, Errors: 3}, time.Now()))
}

func TestDiagnoseMissingDataAlone(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	diag := d.Diagnose(Batch{MissingDataRate: 0.25}, time.Now())
	require.NotNil(t, diag)
	assert.InDelta(t, 0.6, diag.Severity, 1e-12)
	assert.Equal(t, LevelDefensive, diag.Level)
	assert.Equal(t, CauseDataIngestion, diag.Cause)
}

func TestDiagnoseProbabilityPathology(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	// Extreme outputs.
	diag := d.Diagnose(Batch{Probabilities: []float64{0.2, 0.999, 0.4}}, time.Now())
	require.NotNil(t, diag)
	assert.InDelta(t, 0.5, diag.Severity, 1e-12)
	assert.Equal(t, LevelConservative, diag.Level)
	assert.Equal(t, CauseCalibrationCollapse, diag.Cause)

	// Pathologically flat outputs.
	diag = d.Diagnose(Batch{Probabilities: []float64{0.50, 0.505, 0.51, 0.50, 0.505}}, time.Now())
	require.NotNil(t, diag)
	assert.Equal(t, CauseCalibrationCollapse, diag.Cause)

	// A healthy spread does not fire.
	assert.Nil(t, d.Diagnose(Batch{Probabilities: []float64{0.1, 0.3, 0.5, 0.7, 0.9}}, time.Now()))
}

func TestLevelForSeverity(t *testing.T) {
	assert.Equal(t, LevelNormal, LevelForSeverity(0.39))
	assert.Equal(t, LevelConservative, LevelForSeverity(0.4))
	assert.Equal(t, LevelConservative, LevelForSeverity(0.59))
	assert.Equal(t, LevelDefensive, LevelForSeverity(0.6))
	assert.Equal(t, LevelDefensive, LevelForSeverity(0.79))
	assert.Equal(t, LevelShutdown, LevelForSeverity(0.8))
	assert.Equal(t, LevelShutdown, LevelForSeverity(1.0))
}

func TestParseLevelRoundTrips(t *testing.T) {
	for _, l := range []Level{LevelNormal, LevelConservative, LevelDefensive, LevelShutdown} {
		assert.Equal(t, l, ParseLevel(l.String()))
	}
	assert.Equal(t, LevelNormal, ParseLevel("garbage"))
}

func TestShutdownRecommendsManualReset(t *testing.T) {
	d := NewDiagnostician(testSafeModeConfig(), nil)

	diag := d.Diagnose(Batch{Attempts: 10, Errors: 9}, time.Now())
	require.NotNil(t, diag)
	require.Equal(t, LevelShutdown, diag.Level)
	assert.Contains(t, diag.RecommendedActions, "manual reset required before staking resumes")
}
