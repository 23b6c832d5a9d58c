// Package logger provides audit logging.
package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for staking decisions.
// Every recommendation, gate rejection and safe-mode transition passes
// through here so the decision history can be reconstructed from logs.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogStakeRecommendation logs an approved stake recommendation.
func (al *AuditLogger) LogStakeRecommendation(contestID, selectionID string, edge, kellyFraction, stakeFraction, stakeAmount, odds float64, timestamp time.Time) {
	al.WithFields(logrus.Fields{
		"contest_id":     contestID,
		"selection_id":   selectionID,
		"edge":           edge,
		"kelly_fraction": kellyFraction,
		"stake_fraction": stakeFraction,
		"stake_amount":   stakeAmount,
		"odds":           odds,
		"timestamp":      timestamp.Unix(),
	}).Info("Stake recommendation recorded")
}

// LogRiskGate logs a PASS decision issued by the risk controller.
func (al *AuditLogger) LogRiskGate(contestID, selectionID, reason string, requestedStake float64) {
	al.WithFields(logrus.Fields{
		"contest_id":      contestID,
		"selection_id":    selectionID,
		"reason":          reason,
		"requested_stake": requestedStake,
	}).Warn("Stake request risk-gated")
}

// LogSafeModeTransition logs a safe-mode level change.
func (al *AuditLogger) LogSafeModeTransition(oldLevel, newLevel string, severity float64, triggers []string) {
	al.WithFields(logrus.Fields{
		"old_level": oldLevel,
		"new_level": newLevel,
		"severity":  severity,
		"triggers":  triggers,
	}).Warn("Safe mode transition recorded")
}

// LogSettlement logs a settled bet applied to the bankroll.
func (al *AuditLogger) LogSettlement(betID string, stake, returns, profit, balance float64) {
	al.WithFields(logrus.Fields{
		"bet_id":  betID,
		"stake":   stake,
		"returns": returns,
		"profit":  profit,
		"balance": balance,
	}).Info("Settlement recorded")
}
