package probsource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/calibration"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/repository"
)

// Refitter refits calibration from recently settled contests and swaps the
// new parameters into the live calibrated source.
type Refitter struct {
	contests   repository.ContestRepository
	fits       repository.CalibrationRepository
	calibrator *calibration.Calibrator
	target     *CalibratedSource
	window     time.Duration
	logger     *logrus.Logger
}

// NewRefitter creates a refitter that trains on the trailing window of
// settled contests.
func NewRefitter(
	contests repository.ContestRepository,
	fits repository.CalibrationRepository,
	calibrator *calibration.Calibrator,
	target *CalibratedSource,
	window time.Duration,
	logger *logrus.Logger,
) *Refitter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Refitter{
		contests:   contests,
		fits:       fits,
		calibrator: calibrator,
		target:     target,
		window:     window,
		logger:     logger,
	}
}

// Refit loads the trailing window of settled contests, fits calibration on
// their (score, outcome) pairs and installs the result. An undersized
// window leaves the current parameters in place and is not an error.
func (r *Refitter) Refit(ctx context.Context) error {
	now := time.Now().UTC()
	settled, err := r.contests.GetSettled(ctx, now.Add(-r.window), now)
	if err != nil {
		return fmt.Errorf("failed to load settled contests: %w", err)
	}

	var scores []float64
	var outcomes []int
	for _, c := range settled {
		for id, score := range c.Scores {
			scores = append(scores, score)
			if c.IsWinner(id) {
				outcomes = append(outcomes, 1)
			} else {
				outcomes = append(outcomes, 0)
			}
		}
	}

	params, err := r.calibrator.Fit(scores, outcomes)
	if errors.Is(err, models.ErrInsufficientData) {
		r.logger.WithFields(logrus.Fields{
			"samples": len(scores),
			"window":  r.window.String(),
		}).Warn("Not enough settled data to refit calibration, keeping current parameters")
		return nil
	}
	if err != nil {
		return fmt.Errorf("calibration refit failed: %w", err)
	}

	if r.fits != nil {
		if err := r.fits.Save(ctx, params); err != nil {
			return fmt.Errorf("failed to persist calibration: %w", err)
		}
	}
	r.target.SetParameters(params)
	return nil
}
