// Package calibration fits and applies score-to-probability transforms so
// that raw model scores match observed win frequencies.
package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/oddsmith/internal/models"
)

const (
	// probEpsilon keeps scores inside the open interval (0,1) before any
	// logit transform. Raw scores of exactly 0 or 1 are singular.
	probEpsilon = 1e-6

	defaultMinSamples = 30
	defaultBins       = 10

	maxNewtonIterations = 100
	newtonTolerance     = 1e-10
)

// Calibrator fits Platt-style logistic recalibrations.
type Calibrator struct {
	minSamples int
	bins       int
	logger     *logrus.Logger
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithMinSamples overrides the minimum fitting sample size.
func WithMinSamples(n int) Option {
	return func(c *Calibrator) { c.minSamples = n }
}

// WithBins overrides the bin count used for expected calibration error.
func WithBins(n int) Option {
	return func(c *Calibrator) { c.bins = n }
}

// NewCalibrator creates a calibrator with the given options.
func NewCalibrator(logger *logrus.Logger, opts ...Option) *Calibrator {
	if logger == nil {
		logger = logrus.New()
	}
	c := &Calibrator{
		minSamples: defaultMinSamples,
		bins:       defaultBins,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fit fits a logistic recalibration of raw scores against binary outcomes.
// Outcomes must be 0 or 1 and the same length as scores. Returns
// models.ErrInsufficientData below the configured minimum sample size so a
// caller can fall back to identity calibration or defer the refit.
func (c *Calibrator) Fit(scores []float64, outcomes []int) (models.CalibrationParameters, error) {
	if len(scores) != len(outcomes) {
		return models.CalibrationParameters{}, fmt.Errorf(
			"scores and outcomes length mismatch: %d vs %d", len(scores), len(outcomes))
	}
	if len(scores) < c.minSamples {
		return models.CalibrationParameters{}, fmt.Errorf(
			"%w: have %d samples, need %d", models.ErrInsufficientData, len(scores), c.minSamples)
	}
	for i, o := range outcomes {
		if o != 0 && o != 1 {
			return models.CalibrationParameters{}, fmt.Errorf("outcome at index %d is not binary: %d", i, o)
		}
	}

	logits := make([]float64, len(scores))
	for i, s := range scores {
		logits[i] = logit(clampOpen(s))
	}

	intercept, slope, err := fitLogistic(logits, outcomes)
	if err != nil {
		return models.CalibrationParameters{}, fmt.Errorf("logistic fit failed: %w", err)
	}

	params := models.CalibrationParameters{
		Method:     models.CalibrationPlatt,
		Intercept:  intercept,
		Slope:      slope,
		SampleSize: len(scores),
		FittedAt:   time.Now().UTC(),
	}

	calibrated := make([]float64, len(scores))
	clamped := make([]float64, len(scores))
	for i, s := range scores {
		clamped[i] = clampOpen(s)
		calibrated[i] = c.Apply(s, params)
	}
	params.Quality = models.FitQuality{
		BrierBefore:   brierScore(clamped, outcomes),
		BrierAfter:    brierScore(calibrated, outcomes),
		LogLossBefore: logLoss(clamped, outcomes),
		LogLossAfter:  logLoss(calibrated, outcomes),
		ECEBefore:     expectedCalibrationError(clamped, outcomes, c.bins),
		ECEAfter:      expectedCalibrationError(calibrated, outcomes, c.bins),
	}

	c.logger.WithFields(logrus.Fields{
		"samples":         params.SampleSize,
		"intercept":       params.Intercept,
		"slope":           params.Slope,
		"brier_before":    params.Quality.BrierBefore,
		"brier_after":     params.Quality.BrierAfter,
		"log_loss_before": params.Quality.LogLossBefore,
		"log_loss_after":  params.Quality.LogLossAfter,
	}).Info("Calibration fitted")

	return params, nil
}

// Apply maps a raw model score through fitted parameters. The result is
// always inside the open interval (0,1).
func (c *Calibrator) Apply(rawScore float64, params models.CalibrationParameters) float64 {
	s := clampOpen(rawScore)
	switch params.Method {
	case models.CalibrationIdentity:
		return s
	case models.CalibrationPlatt:
		return clampOpen(sigmoid(params.Intercept + params.Slope*logit(s)))
	default:
		return s
	}
}

// fitLogistic fits sigmoid(a + b*x) against binary y by Newton-Raphson on
// the two-parameter log-likelihood.
func fitLogistic(x []float64, y []int) (a, b float64, err error) {
	a, b = 0, 1

	for iter := 0; iter < maxNewtonIterations; iter++ {
		var g0, g1 float64        // gradient
		var h00, h01, h11 float64 // Hessian of the negative log-likelihood

		for i := range x {
			p := sigmoid(a + b*x[i])
			w := p * (1 - p)
			d := p - float64(y[i])
			g0 += d
			g1 += d * x[i]
			h00 += w
			h01 += w * x[i]
			h11 += w * x[i] * x[i]
		}

		det := h00*h11 - h01*h01
		if math.Abs(det) < 1e-12 {
			return 0, 0, fmt.Errorf("singular Hessian at iteration %d", iter)
		}

		da := (h11*g0 - h01*g1) / det
		db := (h00*g1 - h01*g0) / det
		a -= da
		b -= db

		if math.Abs(da) < newtonTolerance && math.Abs(db) < newtonTolerance {
			break
		}
	}

	if math.IsNaN(a) || math.IsNaN(b) || math.IsInf(a, 0) || math.IsInf(b, 0) {
		return 0, 0, fmt.Errorf("fit diverged")
	}
	return a, b, nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

func logit(p float64) float64 {
	return math.Log(p / (1 - p))
}

func clampOpen(p float64) float64 {
	if math.IsNaN(p) {
		return probEpsilon
	}
	if p < probEpsilon {
		return probEpsilon
	}
	if p > 1-probEpsilon {
		return 1 - probEpsilon
	}
	return p
}
