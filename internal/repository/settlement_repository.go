package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/oddsmith/internal/database"
	"github.com/yourusername/oddsmith/internal/models"
)

// PostgresSettlementRepository implements SettlementRepository for PostgreSQL.
type PostgresSettlementRepository struct {
	db *database.DB
}

// NewPostgresSettlementRepository creates a new settlement repository.
func NewPostgresSettlementRepository(db *database.DB) SettlementRepository {
	return &PostgresSettlementRepository{db: db}
}

// Create inserts a settlement. Duplicate bet IDs map to ErrDuplicateKey so
// the settlement consumer can treat redelivery as a no-op.
func (r *PostgresSettlementRepository) Create(ctx context.Context, s *models.Settlement) error {
	query := `
		INSERT INTO settlements (bet_id, contest_id, selection_id, stake, outcome, returns, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.GetPool().Exec(ctx, query,
		s.BetID, s.ContestID, s.SelectionID, s.Stake, string(s.Outcome), s.Returns, s.SettledAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return models.ErrDuplicateKey
		}
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	return nil
}

// GetByContestID retrieves all settlements for a contest.
func (r *PostgresSettlementRepository) GetByContestID(ctx context.Context, contestID uuid.UUID) ([]*models.Settlement, error) {
	query := `
		SELECT bet_id, contest_id, selection_id, stake, outcome, returns, settled_at
		FROM settlements
		WHERE contest_id = $1
		ORDER BY settled_at ASC
	`
	return r.querySettlements(ctx, query, contestID)
}

// GetByTimeRange retrieves settlements within [start, end], ordered by
// settlement time.
func (r *PostgresSettlementRepository) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Settlement, error) {
	query := `
		SELECT bet_id, contest_id, selection_id, stake, outcome, returns, settled_at
		FROM settlements
		WHERE settled_at >= $1 AND settled_at <= $2
		ORDER BY settled_at ASC
	`
	return r.querySettlements(ctx, query, start, end)
}

func (r *PostgresSettlementRepository) querySettlements(ctx context.Context, query string, args ...interface{}) ([]*models.Settlement, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		s := &models.Settlement{}
		var outcome string
		if err := rows.Scan(&s.BetID, &s.ContestID, &s.SelectionID, &s.Stake, &outcome, &s.Returns, &s.SettledAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		s.Outcome = models.BetOutcome(outcome)
		settlements = append(settlements, s)
	}
	return settlements, rows.Err()
}

// isDuplicateKeyError detects a PostgreSQL unique violation (23505).
func isDuplicateKeyError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
