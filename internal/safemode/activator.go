package safemode

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/metrics"
)

// RiskGate is the slice of the risk controller the activator drives.
type RiskGate interface {
	SetStakeMultiplier(m float64)
	SetSimulationOnly(v bool)
	Halt(reason string)
}

// Activator owns the live safe-mode configuration. Activation overwrites
// the configuration wholesale from the level lookup table; it is never a
// gradual adjustment.
type Activator struct {
	gate     RiskGate
	cooldown time.Duration
	logger   *logrus.Logger

	mu          sync.RWMutex
	current     Config
	activatedAt time.Time
	history     []*FailureDiagnostic
}

// NewActivator creates an activator starting at NORMAL.
func NewActivator(gate RiskGate, cooldown time.Duration, logger *logrus.Logger) *Activator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Activator{
		gate:     gate,
		cooldown: cooldown,
		logger:   logger,
		current:  LevelConfig(LevelNormal),
	}
}

// Activate applies the configuration for the diagnostic's level and records
// the diagnostic in the append-only history. Returns the applied config.
func (a *Activator) Activate(diag *FailureDiagnostic) Config {
	a.mu.Lock()
	defer a.mu.Unlock()

	oldLevel := a.current.Level
	cfg := LevelConfig(diag.Level)
	a.current = cfg
	a.activatedAt = diag.At
	a.history = append(a.history, diag)

	a.applyLocked(cfg, "diagnostic severity "+formatSeverity(diag.Severity))

	a.logger.WithFields(logrus.Fields{
		"old_level":  oldLevel.String(),
		"new_level":  cfg.Level.String(),
		"severity":   diag.Severity,
		"cause":      string(diag.Cause),
		"multiplier": cfg.StakeMultiplier,
	}).Warn("Safe mode activated")

	metrics.SafeModeActivationsTotal.WithLabelValues(cfg.Level.String()).Inc()
	return cfg
}

// MaybeRevert returns to NORMAL once the safe-mode cooldown has elapsed
// since the last activation. SHUTDOWN never auto-reverts.
func (a *Activator) MaybeRevert(now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current.Level == LevelNormal || a.current.Level == LevelShutdown {
		return false
	}
	if now.Sub(a.activatedAt) < a.cooldown {
		return false
	}

	a.current = LevelConfig(LevelNormal)
	a.applyLocked(a.current, "safe mode cooldown elapsed")
	a.logger.Info("Safe mode reverted to NORMAL after cooldown")
	return true
}

// Reset is the explicit operator action returning to NORMAL, including
// from SHUTDOWN.
func (a *Activator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = LevelConfig(LevelNormal)
	a.applyLocked(a.current, "operator reset")
	a.logger.Info("Safe mode manually reset to NORMAL")
}

// Current returns the active configuration.
func (a *Activator) Current() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// History returns the append-only diagnostic history.
func (a *Activator) History() []*FailureDiagnostic {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*FailureDiagnostic, len(a.history))
	copy(out, a.history)
	return out
}

func (a *Activator) applyLocked(cfg Config, reason string) {
	metrics.SafeModeLevel.Set(float64(cfg.Level))
	metrics.StakeMultiplier.Set(cfg.StakeMultiplier)

	if a.gate == nil {
		return
	}
	a.gate.SetStakeMultiplier(cfg.StakeMultiplier)
	a.gate.SetSimulationOnly(cfg.SimulationOnly)
	if cfg.Level == LevelShutdown {
		a.gate.Halt(reason)
	}
}

func formatSeverity(s float64) string {
	switch {
	case s >= 0.8:
		return "critical"
	case s >= 0.6:
		return "high"
	case s >= 0.4:
		return "moderate"
	default:
		return "low"
	}
}
