// Package repository provides persistence for contests, settlements,
// calibration fits and failure diagnostics.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/safemode"
)

// ContestRepository stores contests and their settled results.
type ContestRepository interface {
	Upsert(ctx context.Context, contest *models.Contest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Contest, error)
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Contest, error)
	GetSettled(ctx context.Context, start, end time.Time) ([]*models.Contest, error)
	SetWinner(ctx context.Context, id uuid.UUID, winnerID string) error
}

// SettlementRepository stores settled bets.
type SettlementRepository interface {
	Create(ctx context.Context, s *models.Settlement) error
	GetByContestID(ctx context.Context, contestID uuid.UUID) ([]*models.Settlement, error)
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Settlement, error)
}

// CalibrationRepository stores fitted calibration parameters. Latest fit
// wins; history is kept for fit-quality comparison over time.
type CalibrationRepository interface {
	Save(ctx context.Context, params models.CalibrationParameters) error
	Latest(ctx context.Context) (models.CalibrationParameters, error)
}

// DiagnosticRepository stores the append-only failure diagnostic history.
type DiagnosticRepository interface {
	Save(ctx context.Context, diag *safemode.FailureDiagnostic) error
	GetRecent(ctx context.Context, limit int) ([]*safemode.FailureDiagnostic, error)
}
