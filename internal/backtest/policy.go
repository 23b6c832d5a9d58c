package backtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/calibration"
	"github.com/yourusername/oddsmith/internal/models"
)

// PolicyFactory builds the probability policy for one fold. Factories see
// only the fold's training window, which is what keeps the replay free of
// lookahead.
type PolicyFactory func(fold FoldWindow) (ProbabilitySource, error)

// StaticPolicy uses the same probability source for every fold. Suitable
// for sources that carry no fitted state.
func StaticPolicy(source ProbabilitySource) PolicyFactory {
	return func(FoldWindow) (ProbabilitySource, error) {
		return source, nil
	}
}

// CalibratedScorePolicy fits a calibration on the fold's training contests
// and applies it to the embedded raw scores of test contests. Folds whose
// training window is too small fall back to identity calibration rather
// than failing the fold.
func CalibratedScorePolicy(calibrator *calibration.Calibrator, logger *logrus.Logger) PolicyFactory {
	if logger == nil {
		logger = logrus.New()
	}
	return func(fold FoldWindow) (ProbabilitySource, error) {
		scores, outcomes := trainingPairs(fold.Train)

		params, err := calibrator.Fit(scores, outcomes)
		if errors.Is(err, models.ErrInsufficientData) {
			logger.WithFields(logrus.Fields{
				"fold":    fold.Index,
				"samples": len(scores),
			}).Warn("Training window too small for calibration, using identity")
			params = models.IdentityCalibration()
		} else if err != nil {
			return nil, fmt.Errorf("calibration fit for fold %d: %w", fold.Index, err)
		}

		return ProbabilityFunc(func(ctx context.Context, contest *models.Contest) (map[string]float64, error) {
			if len(contest.Scores) == 0 {
				return nil, fmt.Errorf("contest %s has no model scores", contest.ID)
			}
			probs := make(map[string]float64, len(contest.Scores))
			for id, score := range contest.Scores {
				probs[id] = calibrator.Apply(score, params)
			}
			return probs, nil
		}), nil
	}
}

// trainingPairs flattens settled training contests into (score, outcome)
// pairs, one per contestant with a known score.
func trainingPairs(contests []*models.Contest) ([]float64, []int) {
	var scores []float64
	var outcomes []int
	for _, c := range contests {
		if !c.HasResult() {
			continue
		}
		for id, score := range c.Scores {
			scores = append(scores, score)
			if c.IsWinner(id) {
				outcomes = append(outcomes, 1)
			} else {
				outcomes = append(outcomes, 0)
			}
		}
	}
	return scores, outcomes
}
