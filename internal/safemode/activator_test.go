package safemode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	multiplier     float64
	simulationOnly bool
	haltReason     string
	halted         bool
}

func (g *fakeGate) SetStakeMultiplier(m float64) { g.multiplier = m }
func (g *fakeGate) SetSimulationOnly(v bool)     { g.simulationOnly = v }
func (g *fakeGate) Halt(reason string) {
	g.halted = true
	g.haltReason = reason
}

func diagAt(level Level, severity float64, at time.Time) *FailureDiagnostic {
	return &FailureDiagnostic{
		At:       at,
		Severity: severity,
		Level:    level,
		Cause:    CauseUnknown,
	}
}

func TestActivateOverwritesConfigWholesale(t *testing.T) {
	gate := &fakeGate{multiplier: 1.0}
	a := NewActivator(gate, 12*time.Hour, nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := a.Activate(diagAt(LevelDefensive, 0.7, now))

	assert.Equal(t, LevelDefensive, cfg.Level)
	assert.Equal(t, 0.25, cfg.StakeMultiplier)
	assert.True(t, cfg.RestrictToCorePolicy)
	assert.False(t, cfg.MarketFeaturesEnabled)

	assert.Equal(t, 0.25, gate.multiplier)
	assert.False(t, gate.halted)
	assert.Equal(t, cfg, a.Current())
	assert.Len(t, a.History(), 1)
}

func TestActivateShutdownHaltsGate(t *testing.T) {
	gate := &fakeGate{}
	a := NewActivator(gate, 12*time.Hour, nil)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := a.Activate(diagAt(LevelShutdown, 0.85, now))

	assert.Equal(t, 0.0, cfg.StakeMultiplier)
	assert.True(t, cfg.SimulationOnly)
	assert.True(t, gate.halted)
	assert.True(t, gate.simulationOnly)
}

func TestMaybeRevertAfterCooldown(t *testing.T) {
	gate := &fakeGate{}
	a := NewActivator(gate, 12*time.Hour, nil)

	activated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.Activate(diagAt(LevelConservative, 0.5, activated))

	// Too early.
	assert.False(t, a.MaybeRevert(activated.Add(6*time.Hour)))
	assert.Equal(t, LevelConservative, a.Current().Level)

	// Cooldown elapsed.
	assert.True(t, a.MaybeRevert(activated.Add(13*time.Hour)))
	assert.Equal(t, LevelNormal, a.Current().Level)
	assert.Equal(t, 1.0, gate.multiplier)

	// Already NORMAL: nothing to revert.
	assert.False(t, a.MaybeRevert(activated.Add(24*time.Hour)))
}

func TestMaybeRevertNeverLeavesShutdown(t *testing.T) {
	gate := &fakeGate{}
	a := NewActivator(gate, time.Hour, nil)

	activated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.Activate(diagAt(LevelShutdown, 0.9, activated))

	assert.False(t, a.MaybeRevert(activated.Add(100*time.Hour)))
	assert.Equal(t, LevelShutdown, a.Current().Level)
}

func TestResetClearsShutdown(t *testing.T) {
	gate := &fakeGate{}
	a := NewActivator(gate, time.Hour, nil)

	activated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.Activate(diagAt(LevelShutdown, 0.9, activated))
	require.Equal(t, LevelShutdown, a.Current().Level)

	a.Reset()
	assert.Equal(t, LevelNormal, a.Current().Level)
	assert.Equal(t, 1.0, gate.multiplier)
	assert.False(t, gate.simulationOnly)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	a := NewActivator(nil, time.Hour, nil)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	a.Activate(diagAt(LevelConservative, 0.5, base))
	a.Activate(diagAt(LevelDefensive, 0.7, base.Add(time.Hour)))

	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, LevelConservative, history[0].Level)
	assert.Equal(t, LevelDefensive, history[1].Level)

	// Mutating the returned slice does not touch the internal history.
	history[0] = nil
	assert.NotNil(t, a.History()[0])
}
