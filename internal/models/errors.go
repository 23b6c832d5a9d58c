package models

import "errors"

// Custom errors
var (
	ErrInsufficientData = errors.New("insufficient data for calibration fit")
	ErrNotFound         = errors.New("record not found")
	ErrDuplicateKey     = errors.New("duplicate key violation")
	ErrInvalidID        = errors.New("invalid ID format")
)
