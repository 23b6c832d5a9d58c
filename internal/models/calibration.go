package models

import "time"

// CalibrationMethod identifies the transform family of fitted parameters.
type CalibrationMethod string

const (
	// CalibrationPlatt is a two-coefficient logistic recalibration.
	CalibrationPlatt CalibrationMethod = "platt"
	// CalibrationIdentity passes raw scores through unchanged (clamped).
	CalibrationIdentity CalibrationMethod = "identity"
)

// FitQuality captures proper-scoring metrics measured on the fitting sample,
// before and after the transform, so a caller can confirm whether the
// calibration actually improved matters.
type FitQuality struct {
	BrierBefore   float64 `json:"brier_before"`
	BrierAfter    float64 `json:"brier_after"`
	LogLossBefore float64 `json:"log_loss_before"`
	LogLossAfter  float64 `json:"log_loss_after"`
	ECEBefore     float64 `json:"ece_before"`
	ECEAfter      float64 `json:"ece_after"`
}

// CalibrationParameters is a fitted score-to-probability transform.
// Immutable once produced; a refit replaces the whole value.
type CalibrationParameters struct {
	Method     CalibrationMethod `json:"method"`
	Intercept  float64           `json:"intercept"`
	Slope      float64           `json:"slope"`
	SampleSize int               `json:"sample_size"`
	Quality    FitQuality        `json:"quality"`
	FittedAt   time.Time         `json:"fitted_at"`
}

// IdentityCalibration returns parameters that leave scores untouched,
// the documented fallback when fitting fails on insufficient data.
func IdentityCalibration() CalibrationParameters {
	return CalibrationParameters{
		Method:   CalibrationIdentity,
		Slope:    1,
		FittedAt: time.Now().UTC(),
	}
}
