// Package probsource fetches raw win scores from the external model service
// and turns them into calibrated win probabilities.
package probsource

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/calibration"
	"github.com/yourusername/oddsmith/internal/models"
)

// Source supplies raw, uncalibrated model scores for a contest's
// contestants. Scores are in [0,1] but carry no frequency guarantee until
// calibrated.
type Source interface {
	Scores(ctx context.Context, contest *models.Contest) (map[string]float64, error)
	Close() error
}

// CalibratedSource maps a Source's raw scores through fitted calibration
// parameters. It satisfies the probability-source contract of the decision
// engine and the backtest harness.
type CalibratedSource struct {
	source     Source
	calibrator *calibration.Calibrator
	logger     *logrus.Logger

	mu     sync.RWMutex
	params models.CalibrationParameters
}

// NewCalibratedSource wraps a raw score source with calibration. Pass
// models.IdentityCalibration() until a fit is available.
func NewCalibratedSource(source Source, calibrator *calibration.Calibrator, params models.CalibrationParameters, logger *logrus.Logger) *CalibratedSource {
	if logger == nil {
		logger = logrus.New()
	}
	return &CalibratedSource{
		source:     source,
		calibrator: calibrator,
		params:     params,
		logger:     logger,
	}
}

// Probabilities fetches raw scores and applies the calibration transform.
func (s *CalibratedSource) Probabilities(ctx context.Context, contest *models.Contest) (map[string]float64, error) {
	scores, err := s.source.Scores(ctx, contest)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	params := s.params
	s.mu.RUnlock()

	probs := make(map[string]float64, len(scores))
	for id, score := range scores {
		probs[id] = s.calibrator.Apply(score, params)
	}
	return probs, nil
}

// SetParameters swaps in freshly fitted calibration parameters. Called by
// the scheduler after a refit.
func (s *CalibratedSource) SetParameters(params models.CalibrationParameters) {
	s.mu.Lock()
	s.params = params
	s.mu.Unlock()
	s.logger.WithFields(logrus.Fields{
		"method":      string(params.Method),
		"intercept":   params.Intercept,
		"slope":       params.Slope,
		"sample_size": params.SampleSize,
	}).Info("Calibration parameters updated")
}

// Close releases the underlying source.
func (s *CalibratedSource) Close() error {
	return s.source.Close()
}
