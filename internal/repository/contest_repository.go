package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/oddsmith/internal/database"
	"github.com/yourusername/oddsmith/internal/models"
)

// PostgresContestRepository implements ContestRepository for PostgreSQL.
type PostgresContestRepository struct {
	db *database.DB
}

// NewPostgresContestRepository creates a new contest repository.
func NewPostgresContestRepository(db *database.DB) ContestRepository {
	return &PostgresContestRepository{db: db}
}

// Upsert inserts or replaces a contest. Score and quote maps round-trip
// through JSONB.
func (r *PostgresContestRepository) Upsert(ctx context.Context, contest *models.Contest) error {
	scores, err := json.Marshal(contest.Scores)
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	quotes, err := json.Marshal(contest.Quotes)
	if err != nil {
		return fmt.Errorf("failed to marshal quotes: %w", err)
	}

	query := `
		INSERT INTO contests (id, venue, start_time, scores, quotes, winner_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			venue = EXCLUDED.venue, start_time = EXCLUDED.start_time,
			scores = EXCLUDED.scores, quotes = EXCLUDED.quotes,
			winner_id = EXCLUDED.winner_id, updated_at = NOW()
	`
	_, err = r.db.GetPool().Exec(ctx, query,
		contest.ID, contest.Venue, contest.StartTime, scores, quotes, contest.WinnerID)
	if err != nil {
		return fmt.Errorf("failed to upsert contest: %w", err)
	}
	return nil
}

// GetByID retrieves a contest by ID.
func (r *PostgresContestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	query := `
		SELECT id, venue, start_time, scores, quotes, winner_id
		FROM contests WHERE id = $1
	`
	row := r.db.GetPool().QueryRow(ctx, query, id)
	contest, err := scanContest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return contest, nil
}

// GetByTimeRange retrieves contests starting within [start, end], ordered
// chronologically.
func (r *PostgresContestRepository) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Contest, error) {
	query := `
		SELECT id, venue, start_time, scores, quotes, winner_id
		FROM contests
		WHERE start_time >= $1 AND start_time <= $2
		ORDER BY start_time ASC
	`
	return r.queryContests(ctx, query, start, end)
}

// GetSettled retrieves contests with a known winner within [start, end].
func (r *PostgresContestRepository) GetSettled(ctx context.Context, start, end time.Time) ([]*models.Contest, error) {
	query := `
		SELECT id, venue, start_time, scores, quotes, winner_id
		FROM contests
		WHERE winner_id <> '' AND start_time >= $1 AND start_time <= $2
		ORDER BY start_time ASC
	`
	return r.queryContests(ctx, query, start, end)
}

// SetWinner records a contest's settled result.
func (r *PostgresContestRepository) SetWinner(ctx context.Context, id uuid.UUID, winnerID string) error {
	query := `UPDATE contests SET winner_id = $2, updated_at = NOW() WHERE id = $1`
	tag, err := r.db.GetPool().Exec(ctx, query, id, winnerID)
	if err != nil {
		return fmt.Errorf("failed to set contest winner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PostgresContestRepository) queryContests(ctx context.Context, query string, args ...interface{}) ([]*models.Contest, error) {
	rows, err := r.db.GetPool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contests: %w", err)
	}
	defer rows.Close()

	var contests []*models.Contest
	for rows.Next() {
		contest, err := scanContest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		contests = append(contests, contest)
	}
	return contests, rows.Err()
}

func scanContest(row pgx.Row) (*models.Contest, error) {
	contest := &models.Contest{}
	var scores, quotes []byte
	if err := row.Scan(&contest.ID, &contest.Venue, &contest.StartTime, &scores, &quotes, &contest.WinnerID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scores, &contest.Scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scores: %w", err)
	}
	if err := json.Unmarshal(quotes, &contest.Quotes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quotes: %w", err)
	}
	return contest, nil
}
