package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/yourusername/oddsmith/internal/database"
	"github.com/yourusername/oddsmith/internal/safemode"
)

// PostgresDiagnosticRepository implements DiagnosticRepository for PostgreSQL.
type PostgresDiagnosticRepository struct {
	db *database.DB
}

// NewPostgresDiagnosticRepository creates a new diagnostic repository.
func NewPostgresDiagnosticRepository(db *database.DB) DiagnosticRepository {
	return &PostgresDiagnosticRepository{db: db}
}

// Save appends a failure diagnostic to the history.
func (r *PostgresDiagnosticRepository) Save(ctx context.Context, diag *safemode.FailureDiagnostic) error {
	triggers, err := json.Marshal(diag.TriggerDescription)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger descriptions: %w", err)
	}
	actions, err := json.Marshal(diag.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended actions: %w", err)
	}

	query := `
		INSERT INTO diagnostics (id, occurred_at, severity, level, cause, triggers, actions)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.GetPool().Exec(ctx, query,
		diag.ID, diag.At, diag.Severity, diag.Level.String(), string(diag.Cause), triggers, actions)
	if err != nil {
		return fmt.Errorf("failed to save diagnostic: %w", err)
	}
	return nil
}

// GetRecent retrieves the most recent diagnostics, newest first.
func (r *PostgresDiagnosticRepository) GetRecent(ctx context.Context, limit int) ([]*safemode.FailureDiagnostic, error) {
	query := `
		SELECT id, occurred_at, severity, level, cause, triggers, actions
		FROM diagnostics
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := r.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []*safemode.FailureDiagnostic
	for rows.Next() {
		diag := &safemode.FailureDiagnostic{}
		var level, cause string
		var triggers, actions []byte
		if err := rows.Scan(&diag.ID, &diag.At, &diag.Severity, &level, &cause, &triggers, &actions); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		diag.Level = safemode.ParseLevel(level)
		diag.Cause = safemode.Cause(cause)
		if err := json.Unmarshal(triggers, &diag.TriggerDescription); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger descriptions: %w", err)
		}
		if err := json.Unmarshal(actions, &diag.RecommendedActions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recommended actions: %w", err)
		}
		diags = append(diags, diag)
	}
	return diags, rows.Err()
}
