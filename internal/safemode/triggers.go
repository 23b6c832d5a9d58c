package safemode

import "fmt"

// Trigger is one fired diagnostic condition. The set of implementations is
// closed so severity computation stays exhaustive; free-form metric maps are
// deliberately avoided.
type Trigger interface {
	// Severity is the trigger's fixed contribution in [0,1].
	Severity() float64
	// Description is a human-readable condition string for operators.
	Description() string
}

// LossStreakTrigger fires when every one of the last N results lost.
type LossStreakTrigger struct {
	Length int
}

// Severity implements Trigger.
func (t LossStreakTrigger) Severity() float64 { return 0.7 }

// Description implements Trigger.
func (t LossStreakTrigger) Description() string {
	return fmt.Sprintf("loss streak of %d consecutive bets", t.Length)
}

// ErrorRateTrigger fires when errors/attempts exceeds the threshold.
type ErrorRateTrigger struct {
	Rate      float64
	Threshold float64
}

// Severity implements Trigger.
func (t ErrorRateTrigger) Severity() float64 { return 0.8 }

// Description implements Trigger.
func (t ErrorRateTrigger) Description() string {
	return fmt.Sprintf("error rate %.1f%% above threshold %.1f%%", t.Rate*100, t.Threshold*100)
}

// MissingDataTrigger fires when the missing-data rate exceeds the threshold.
type MissingDataTrigger struct {
	Rate      float64
	Threshold float64
}

// Severity implements Trigger.
func (t MissingDataTrigger) Severity() float64 { return 0.6 }

// Description implements Trigger.
func (t MissingDataTrigger) Description() string {
	return fmt.Sprintf("missing data rate %.1f%% above threshold %.1f%%", t.Rate*100, t.Threshold*100)
}

// ProbabilityPathologyTrigger fires on extreme (~1.0) or pathologically
// flat (~uniform) probability outputs.
type ProbabilityPathologyTrigger struct {
	ExtremeCount int
	Flat         bool
}

// Severity implements Trigger.
func (t ProbabilityPathologyTrigger) Severity() float64 { return 0.5 }

// Description implements Trigger.
func (t ProbabilityPathologyTrigger) Description() string {
	if t.Flat {
		return "probability outputs pathologically flat"
	}
	return fmt.Sprintf("%d extreme probability outputs observed", t.ExtremeCount)
}
