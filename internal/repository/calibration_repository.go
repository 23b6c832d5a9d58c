package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddsmith/internal/database"
	"github.com/yourusername/oddsmith/internal/models"
)

// PostgresCalibrationRepository implements CalibrationRepository for PostgreSQL.
type PostgresCalibrationRepository struct {
	db *database.DB
}

// NewPostgresCalibrationRepository creates a new calibration repository.
func NewPostgresCalibrationRepository(db *database.DB) CalibrationRepository {
	return &PostgresCalibrationRepository{db: db}
}

// Save appends a fitted calibration.
func (r *PostgresCalibrationRepository) Save(ctx context.Context, params models.CalibrationParameters) error {
	quality, err := json.Marshal(params.Quality)
	if err != nil {
		return fmt.Errorf("failed to marshal fit quality: %w", err)
	}

	query := `
		INSERT INTO calibrations (method, intercept, slope, sample_size, quality, fitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.GetPool().Exec(ctx, query,
		string(params.Method), params.Intercept, params.Slope, params.SampleSize, quality, params.FittedAt)
	if err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	return nil
}

// Latest returns the most recently fitted calibration, or ErrNotFound when
// no fit has been stored yet.
func (r *PostgresCalibrationRepository) Latest(ctx context.Context) (models.CalibrationParameters, error) {
	query := `
		SELECT method, intercept, slope, sample_size, quality, fitted_at
		FROM calibrations
		ORDER BY fitted_at DESC
		LIMIT 1
	`
	var params models.CalibrationParameters
	var method string
	var quality []byte
	err := r.db.GetPool().QueryRow(ctx, query).Scan(
		&method, &params.Intercept, &params.Slope, &params.SampleSize, &quality, &params.FittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CalibrationParameters{}, models.ErrNotFound
	}
	if err != nil {
		return models.CalibrationParameters{}, fmt.Errorf("failed to get latest calibration: %w", err)
	}
	params.Method = models.CalibrationMethod(method)
	if err := json.Unmarshal(quality, &params.Quality); err != nil {
		return models.CalibrationParameters{}, fmt.Errorf("failed to unmarshal fit quality: %w", err)
	}
	return params, nil
}
