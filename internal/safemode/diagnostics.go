package safemode

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/config"
	"github.com/yourusername/oddsmith/internal/models"
)

// Cause is a best-effort classification of why the system degraded,
// attached for operator triage. It never changes the severity computation.
type Cause string

const (
	CauseDataIngestion       Cause = "data_ingestion"
	CauseLeakage             Cause = "leakage"
	CauseDrift               Cause = "drift"
	CauseCalibrationCollapse Cause = "calibration_collapse"
	CauseDecisionPolicy      Cause = "decision_policy"
	CauseUnknown             Cause = "unknown"
)

// Batch is one periodic observation window handed to the diagnostician by
// the operations collaborator.
type Batch struct {
	Results         []models.BetOutcome
	Attempts        int
	Errors          int
	MissingDataRate float64
	Probabilities   []float64
}

// FailureDiagnostic is the immutable result of one diagnostic pass.
// Diagnostics are append-only history.
type FailureDiagnostic struct {
	ID                 uuid.UUID `json:"id"`
	At                 time.Time `json:"at"`
	TriggerDescription []string  `json:"triggers"`
	Severity           float64   `json:"severity"`
	Level              Level     `json:"safe_mode_level"`
	Cause              Cause     `json:"cause"`
	RecommendedActions []string  `json:"recommended_actions"`

	triggers []Trigger
}

// Triggers returns the fired trigger values.
func (d *FailureDiagnostic) Triggers() []Trigger {
	return d.triggers
}

// Diagnostician runs periodic health passes over batches of settled
// results, errors and data-quality signals.
type Diagnostician struct {
	cfg    config.SafeModeConfig
	logger *logrus.Logger
}

// NewDiagnostician creates a diagnostician with the configured thresholds.
func NewDiagnostician(cfg config.SafeModeConfig, logger *logrus.Logger) *Diagnostician {
	if logger == nil {
		logger = logrus.New()
	}
	return &Diagnostician{cfg: cfg, logger: logger}
}

// Diagnose evaluates one batch. Returns nil when no trigger fires.
// Severity is the maximum across fired triggers, not a sum: one severe
// trigger outweighs several mild ones.
func (d *Diagnostician) Diagnose(batch Batch, now time.Time) *FailureDiagnostic {
	var fired []Trigger

	if t, ok := d.checkLossStreak(batch.Results); ok {
		fired = append(fired, t)
	}
	if t, ok := d.checkErrorRate(batch.Attempts, batch.Errors); ok {
		fired = append(fired, t)
	}
	if t, ok := d.checkMissingData(batch.MissingDataRate); ok {
		fired = append(fired, t)
	}
	if t, ok := checkProbabilityPathology(batch.Probabilities); ok {
		fired = append(fired, t)
	}

	if len(fired) == 0 {
		return nil
	}

	severity := 0.0
	descriptions := make([]string, 0, len(fired))
	for _, t := range fired {
		if t.Severity() > severity {
			severity = t.Severity()
		}
		descriptions = append(descriptions, t.Description())
	}

	level := LevelForSeverity(severity)
	diag := &FailureDiagnostic{
		ID:                 uuid.New(),
		At:                 now,
		TriggerDescription: descriptions,
		Severity:           severity,
		Level:              level,
		Cause:              classifyCause(fired),
		RecommendedActions: recommendActions(level, fired),
		triggers:           fired,
	}

	d.logger.WithFields(logrus.Fields{
		"severity": severity,
		"level":    level.String(),
		"cause":    string(diag.Cause),
		"triggers": descriptions,
	}).Warn("Failure diagnostic produced")

	return diag
}

func (d *Diagnostician) checkLossStreak(results []models.BetOutcome) (Trigger, bool) {
	n := d.cfg.LossStreakLength
	if n <= 0 || len(results) < n {
		return nil, false
	}
	streak := 0
	for _, r := range results[len(results)-n:] {
		if r != models.BetOutcomeLose {
			return nil, false
		}
		streak++
	}
	return LossStreakTrigger{Length: streak}, true
}

func (d *Diagnostician) checkErrorRate(attempts, errors int) (Trigger, bool) {
	if attempts <= 0 {
		return nil, false
	}
	rate := float64(errors) / float64(attempts)
	if rate <= d.cfg.ErrorRateThreshold {
		return nil, false
	}
	return ErrorRateTrigger{Rate: rate, Threshold: d.cfg.ErrorRateThreshold}, true
}

func (d *Diagnostician) checkMissingData(rate float64) (Trigger, bool) {
	if rate <= d.cfg.MissingDataThreshold {
		return nil, false
	}
	return MissingDataTrigger{Rate: rate, Threshold: d.cfg.MissingDataThreshold}, true
}

// checkProbabilityPathology flags extreme (>=0.995) outputs and batches
// whose outputs are indistinguishable from uniform noise.
func checkProbabilityPathology(probs []float64) (Trigger, bool) {
	if len(probs) == 0 {
		return nil, false
	}

	extreme := 0
	minP, maxP := probs[0], probs[0]
	for _, p := range probs {
		if p >= 0.995 || p <= 0.005 {
			extreme++
		}
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}
	if extreme > 0 {
		return ProbabilityPathologyTrigger{ExtremeCount: extreme}, true
	}
	if len(probs) >= 5 && maxP-minP < 0.02 {
		return ProbabilityPathologyTrigger{Flat: true}, true
	}
	return nil, false
}

// classifyCause labels the likeliest failure origin from the fired trigger
// combination. Best-effort only.
func classifyCause(fired []Trigger) Cause {
	var hasStreak, hasErrors, hasMissing, hasPathology bool
	for _, t := range fired {
		switch t.(type) {
		case LossStreakTrigger:
			hasStreak = true
		case ErrorRateTrigger:
			hasErrors = true
		case MissingDataTrigger:
			hasMissing = true
		case ProbabilityPathologyTrigger:
			hasPathology = true
		}
	}

	switch {
	case hasMissing || hasErrors:
		return CauseDataIngestion
	case hasPathology:
		return CauseCalibrationCollapse
	case hasStreak:
		// Losses with healthy data and sane probabilities point at the
		// model going stale rather than the staking policy.
		return CauseDrift
	default:
		return CauseUnknown
	}
}

func recommendActions(level Level, fired []Trigger) []string {
	actions := make([]string, 0, len(fired)+1)
	for _, t := range fired {
		switch t.(type) {
		case LossStreakTrigger:
			actions = append(actions, "review recent bet selection against closing odds")
		case ErrorRateTrigger:
			actions = append(actions, "inspect upstream collaborator error logs")
		case MissingDataTrigger:
			actions = append(actions, "verify market data feed completeness")
		case ProbabilityPathologyTrigger:
			actions = append(actions, "refit calibration and compare fit-quality metrics")
		}
	}
	if level == LevelShutdown {
		actions = append(actions, "manual reset required before staking resumes")
	}
	return actions
}
