// Package risk owns the bankroll state machine: it approves, scales or
// rejects stake recommendations based on drawdown, loss-streak and
// daily-loss rules, and enforces cooldown and halt states.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/metrics"
	"github.com/yourusername/oddsmith/internal/models"
)

// State represents the staking state of the controller
type State int

const (
	// StateActive means staking is allowed
	StateActive State = iota
	// StateCooldown means staking is time-boxed disabled
	StateCooldown
	// StateHalted means staking is disabled until manual reset
	StateHalted
)

// String returns string representation of the state
func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateCooldown:
		return "COOLDOWN"
	case StateHalted:
		return "HALTED"
	default:
		return "UNKNOWN"
	}
}

// PASS reasons attached to gated decisions. Callers distinguish these from
// "no value found", which never reaches the controller at all.
const (
	ReasonCooldownActive = "cooldown active"
	ReasonHalted         = "halted: manual reset required"
	ReasonDailyBetCap    = "daily bet cap reached"
	ReasonDailyStopLoss  = "daily stop-loss breached"
	ReasonMaxDrawdown    = "max drawdown breached"
	ReasonLossStreak     = "loss streak limit reached"
)

// Decision is the controller's answer to a stake request. A gated request
// is a PASS: Approved is false, Reason says why, and the bankroll is
// untouched.
type Decision struct {
	Approved       bool                       `json:"approved"`
	Reason         string                     `json:"reason,omitempty"`
	SimulationOnly bool                       `json:"simulation_only,omitempty"`
	Recommendation models.StakeRecommendation `json:"recommendation"`
}

// BankrollState is a consistent snapshot of the controller's internals,
// safe to read concurrently with stake evaluation.
type BankrollState struct {
	State             State     `json:"state"`
	CurrentBalance    float64   `json:"current_balance"`
	StartingBalance   float64   `json:"starting_balance"`
	PeakBalance       float64   `json:"peak_balance"`
	DailyStartBalance float64   `json:"daily_start_balance"`
	BetsToday         int       `json:"bets_today"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	LastBetTime       time.Time `json:"last_bet_time"`
	CooldownUntil     time.Time `json:"cooldown_until"`
	CooldownReason    string    `json:"cooldown_reason,omitempty"`
	IsHalted          bool      `json:"is_halted"`
}

// Drawdown returns the proportional decline from peak balance.
func (b BankrollState) Drawdown() float64 {
	if b.PeakBalance <= 0 {
		return 0
	}
	dd := (b.PeakBalance - b.CurrentBalance) / b.PeakBalance
	if dd < 0 {
		return 0
	}
	return dd
}

// Controller serializes all mutation of one bankroll. Two stake requests
// against the same bankroll are never evaluated concurrently.
type Controller struct {
	cfg config.RiskConfig

	mu                sync.Mutex
	state             State
	currentBalance    float64
	startingBalance   float64
	peakBalance       float64
	dailyStartBalance float64
	betsToday         int
	consecutiveLosses int
	lastBetTime       time.Time
	cooldownUntil     time.Time
	cooldownSetDay    time.Time
	cooldownReason    string
	lastRolloverDay   time.Time
	stakeMultiplier   float64
	simulationOnly    bool

	logger *logrus.Logger
}

// NewController creates a risk controller with a fresh bankroll.
func NewController(cfg config.RiskConfig, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Controller{
		cfg:               cfg,
		state:             StateActive,
		currentBalance:    cfg.StartingBankroll,
		startingBalance:   cfg.StartingBankroll,
		peakBalance:       cfg.StartingBankroll,
		dailyStartBalance: cfg.StartingBankroll,
		stakeMultiplier:   1.0,
		logger:            logger,
	}
	metrics.CurrentBankroll.Set(c.currentBalance)
	return c
}

// RequestStake gates one stake recommendation. Gated requests return a PASS
// decision with the triggering reason; they never mutate the balance. An
// error return indicates an invariant violation (a programming bug), not a
// policy rejection.
func (c *Controller) RequestStake(rec models.StakeRecommendation, now time.Time) (Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.StakeAmount < 0 {
		return Decision{}, fmt.Errorf("invariant violation: negative stake %.2f for %s", rec.StakeAmount, rec.SelectionID)
	}

	c.refreshStateLocked(now)

	if c.state == StateHalted {
		return c.passLocked(rec, ReasonHalted), nil
	}
	if c.state == StateCooldown {
		return c.passLocked(rec, ReasonCooldownActive), nil
	}
	if c.betsToday >= c.cfg.MaxBetsPerDay {
		return c.passLocked(rec, ReasonDailyBetCap), nil
	}
	if reason, triggered := c.checkStopLossLocked(); triggered {
		c.enterCooldownLocked(now, reason)
		return c.passLocked(rec, reason), nil
	}

	scaled := rec
	scaled.StakeAmount *= c.stakeMultiplier
	scaled.CappedStakeFraction *= c.stakeMultiplier

	if scaled.StakeAmount > c.currentBalance {
		return Decision{}, fmt.Errorf("invariant violation: stake %.2f exceeds balance %.2f", scaled.StakeAmount, c.currentBalance)
	}

	c.betsToday++
	c.lastBetTime = now

	c.logger.WithFields(logrus.Fields{
		"selection_id": scaled.SelectionID,
		"stake":        scaled.StakeAmount,
		"multiplier":   c.stakeMultiplier,
		"bets_today":   c.betsToday,
	}).Debug("Stake request approved")

	return Decision{
		Approved:       true,
		SimulationOnly: c.simulationOnly,
		Recommendation: scaled,
	}, nil
}

// RecordResult applies one settled bet to the bankroll and re-evaluates the
// stop-loss triggers. Returns an error on invariant violations only.
func (c *Controller) RecordResult(stake, returns float64, outcome models.BetOutcome, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if stake < 0 {
		return fmt.Errorf("invariant violation: negative settled stake %.2f", stake)
	}
	if returns < 0 {
		return fmt.Errorf("invariant violation: negative returns %.2f", returns)
	}

	profit := returns - stake
	c.currentBalance += profit
	if c.currentBalance > c.peakBalance {
		c.peakBalance = c.currentBalance
	}

	if outcome == models.BetOutcomeLose {
		c.consecutiveLosses++
	} else {
		c.consecutiveLosses = 0
	}

	metrics.SettlementsTotal.Inc()
	metrics.CurrentBankroll.Set(c.currentBalance)
	metrics.CurrentDrawdown.Set(c.drawdownLocked())
	metrics.ConsecutiveLosses.Set(float64(c.consecutiveLosses))

	c.logger.WithFields(logrus.Fields{
		"stake":              stake,
		"returns":            returns,
		"profit":             profit,
		"balance":            c.currentBalance,
		"peak":               c.peakBalance,
		"consecutive_losses": c.consecutiveLosses,
	}).Info("Bet result recorded")

	if c.state == StateActive {
		if reason, triggered := c.checkStopLossLocked(); triggered {
			c.enterCooldownLocked(now, reason)
		}
	}
	return nil
}

// RollOverDay resets the daily counters. Idempotent within one calendar
// day: calling it twice on the same day is a no-op.
func (c *Controller) RollOverDay(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := truncateToDay(now)
	if !c.lastRolloverDay.Before(day) {
		c.logger.WithField("day", day.Format("2006-01-02")).Debug("Day rollover already applied, skipping")
		return
	}

	c.lastRolloverDay = day
	c.dailyStartBalance = c.currentBalance
	c.betsToday = 0

	c.logger.WithFields(logrus.Fields{
		"day":                 day.Format("2006-01-02"),
		"daily_start_balance": c.dailyStartBalance,
	}).Info("Day rolled over")

	c.refreshStateLocked(now)
}

// Halt moves the controller to HALTED. Only Reset clears it.
func (c *Controller) Halt(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateHalted {
		return
	}
	c.state = StateHalted
	c.logger.WithField("reason", reason).Error("Risk controller halted")
}

// Reset manually clears cooldown and halt and returns to ACTIVE.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldState := c.state
	c.state = StateActive
	c.cooldownUntil = time.Time{}
	c.cooldownSetDay = time.Time{}
	c.cooldownReason = ""
	c.consecutiveLosses = 0

	c.logger.WithFields(logrus.Fields{
		"old_state": oldState.String(),
		"new_state": c.state.String(),
	}).Info("Risk controller manually reset")
}

// SetStakeMultiplier scales all subsequent approved stakes. Used by the
// safe-mode activator; value is clamped to [0,1].
func (c *Controller) SetStakeMultiplier(m float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m < 0 {
		m = 0
	}
	if m > 1 {
		m = 1
	}
	c.stakeMultiplier = m
	metrics.StakeMultiplier.Set(m)
}

// SetSimulationOnly flags subsequent approvals as simulation-only.
func (c *Controller) SetSimulationOnly(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.simulationOnly = v
}

// Snapshot returns a consistent copy of the bankroll state.
func (c *Controller) Snapshot() BankrollState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return BankrollState{
		State:             c.state,
		CurrentBalance:    c.currentBalance,
		StartingBalance:   c.startingBalance,
		PeakBalance:       c.peakBalance,
		DailyStartBalance: c.dailyStartBalance,
		BetsToday:         c.betsToday,
		ConsecutiveLosses: c.consecutiveLosses,
		LastBetTime:       c.lastBetTime,
		CooldownUntil:     c.cooldownUntil,
		CooldownReason:    c.cooldownReason,
		IsHalted:          c.state == StateHalted,
	}
}

// State returns the current state after applying cooldown clearance.
func (c *Controller) State(now time.Time) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshStateLocked(now)
	return c.state
}

// refreshStateLocked clears an elapsed cooldown. Clearance requires both
// the cooldown deadline to have passed and a day rollover since the
// cooldown was set; whichever happens last wins.
func (c *Controller) refreshStateLocked(now time.Time) {
	if c.state != StateCooldown {
		return
	}
	if now.Before(c.cooldownUntil) {
		return
	}
	if !c.lastRolloverDay.After(c.cooldownSetDay) {
		return
	}
	c.state = StateActive
	c.cooldownReason = ""
	c.logger.Info("Cooldown cleared, staking re-enabled")
}

func (c *Controller) checkStopLossLocked() (string, bool) {
	if c.dailyStartBalance > 0 {
		dailyLoss := c.dailyStartBalance - c.currentBalance
		if dailyLoss >= c.cfg.DailyStopLossPct*c.dailyStartBalance {
			return ReasonDailyStopLoss, true
		}
	}
	if c.drawdownLocked() >= c.cfg.MaxDrawdownPct {
		return ReasonMaxDrawdown, true
	}
	if c.consecutiveLosses >= c.cfg.MaxLossStreak {
		return ReasonLossStreak, true
	}
	return "", false
}

func (c *Controller) enterCooldownLocked(now time.Time, reason string) {
	c.state = StateCooldown
	c.cooldownUntil = now.Add(c.cfg.CooldownDuration())
	c.cooldownSetDay = truncateToDay(now)
	c.cooldownReason = reason

	c.logger.WithFields(logrus.Fields{
		"reason":         reason,
		"cooldown_until": c.cooldownUntil,
		"balance":        c.currentBalance,
		"drawdown":       c.drawdownLocked(),
	}).Warn("Cooldown triggered, staking disabled")
}

func (c *Controller) passLocked(rec models.StakeRecommendation, reason string) Decision {
	metrics.StakesGatedTotal.WithLabelValues(reason).Inc()

	c.logger.WithFields(logrus.Fields{
		"selection_id":    rec.SelectionID,
		"requested_stake": rec.StakeAmount,
		"reason":          reason,
	}).Info("Stake request gated")

	passed := rec
	passed.StakeAmount = 0
	passed.CappedStakeFraction = 0
	return Decision{
		Approved:       false,
		Reason:         reason,
		Recommendation: passed,
	}
}

func (c *Controller) drawdownLocked() float64 {
	if c.peakBalance <= 0 {
		return 0
	}
	dd := (c.peakBalance - c.currentBalance) / c.peakBalance
	if dd < 0 {
		return 0
	}
	return dd
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
