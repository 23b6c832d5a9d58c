package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/oddsmith/internal/models"
	"github.com/yourusername/oddsmith/internal/safemode"
)

// MemoryContestRepository is an in-memory ContestRepository for tests and
// backtests run from flat files.
type MemoryContestRepository struct {
	mu       sync.RWMutex
	contests map[uuid.UUID]*models.Contest
}

// NewMemoryContestRepository creates an empty in-memory contest repository.
func NewMemoryContestRepository() *MemoryContestRepository {
	return &MemoryContestRepository{contests: make(map[uuid.UUID]*models.Contest)}
}

// Upsert stores a copy of the contest.
func (r *MemoryContestRepository) Upsert(ctx context.Context, contest *models.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *contest
	r.contests[contest.ID] = &c
	return nil
}

// GetByID retrieves a contest by ID.
func (r *MemoryContestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Contest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := *c
	return &out, nil
}

// GetByTimeRange retrieves contests within [start, end], chronological.
func (r *MemoryContestRepository) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Contest, error) {
	return r.filter(func(c *models.Contest) bool {
		return !c.StartTime.Before(start) && !c.StartTime.After(end)
	}), nil
}

// GetSettled retrieves settled contests within [start, end], chronological.
func (r *MemoryContestRepository) GetSettled(ctx context.Context, start, end time.Time) ([]*models.Contest, error) {
	return r.filter(func(c *models.Contest) bool {
		return c.HasResult() && !c.StartTime.Before(start) && !c.StartTime.After(end)
	}), nil
}

// SetWinner records a contest result.
func (r *MemoryContestRepository) SetWinner(ctx context.Context, id uuid.UUID, winnerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contests[id]
	if !ok {
		return models.ErrNotFound
	}
	c.WinnerID = winnerID
	return nil
}

func (r *MemoryContestRepository) filter(keep func(*models.Contest) bool) []*models.Contest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Contest
	for _, c := range r.contests {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

// MemorySettlementRepository is an in-memory SettlementRepository.
type MemorySettlementRepository struct {
	mu          sync.RWMutex
	settlements map[uuid.UUID]*models.Settlement
}

// NewMemorySettlementRepository creates an empty in-memory settlement repository.
func NewMemorySettlementRepository() *MemorySettlementRepository {
	return &MemorySettlementRepository{settlements: make(map[uuid.UUID]*models.Settlement)}
}

// Create stores a settlement, rejecting duplicate bet IDs.
func (r *MemorySettlementRepository) Create(ctx context.Context, s *models.Settlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.settlements[s.BetID]; exists {
		return models.ErrDuplicateKey
	}
	cp := *s
	r.settlements[s.BetID] = &cp
	return nil
}

// GetByContestID retrieves settlements for a contest, by settlement time.
func (r *MemorySettlementRepository) GetByContestID(ctx context.Context, contestID uuid.UUID) ([]*models.Settlement, error) {
	return r.filter(func(s *models.Settlement) bool { return s.ContestID == contestID }), nil
}

// GetByTimeRange retrieves settlements within [start, end].
func (r *MemorySettlementRepository) GetByTimeRange(ctx context.Context, start, end time.Time) ([]*models.Settlement, error) {
	return r.filter(func(s *models.Settlement) bool {
		return !s.SettledAt.Before(start) && !s.SettledAt.After(end)
	}), nil
}

func (r *MemorySettlementRepository) filter(keep func(*models.Settlement) bool) []*models.Settlement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Settlement
	for _, s := range r.settlements {
		if keep(s) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SettledAt.Before(out[j].SettledAt) })
	return out
}

// MemoryCalibrationRepository is an in-memory CalibrationRepository.
type MemoryCalibrationRepository struct {
	mu   sync.RWMutex
	fits []models.CalibrationParameters
}

// NewMemoryCalibrationRepository creates an empty in-memory calibration repository.
func NewMemoryCalibrationRepository() *MemoryCalibrationRepository {
	return &MemoryCalibrationRepository{}
}

// Save appends a fit.
func (r *MemoryCalibrationRepository) Save(ctx context.Context, params models.CalibrationParameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fits = append(r.fits, params)
	return nil
}

// Latest returns the most recent fit by FittedAt.
func (r *MemoryCalibrationRepository) Latest(ctx context.Context) (models.CalibrationParameters, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.fits) == 0 {
		return models.CalibrationParameters{}, models.ErrNotFound
	}
	latest := r.fits[0]
	for _, f := range r.fits[1:] {
		if f.FittedAt.After(latest.FittedAt) {
			latest = f
		}
	}
	return latest, nil
}

// MemoryDiagnosticRepository is an in-memory DiagnosticRepository.
type MemoryDiagnosticRepository struct {
	mu    sync.RWMutex
	diags []*safemode.FailureDiagnostic
}

// NewMemoryDiagnosticRepository creates an empty in-memory diagnostic repository.
func NewMemoryDiagnosticRepository() *MemoryDiagnosticRepository {
	return &MemoryDiagnosticRepository{}
}

// Save appends a diagnostic.
func (r *MemoryDiagnosticRepository) Save(ctx context.Context, diag *safemode.FailureDiagnostic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, diag)
	return nil
}

// GetRecent returns up to limit diagnostics, newest first.
func (r *MemoryDiagnosticRepository) GetRecent(ctx context.Context, limit int) ([]*safemode.FailureDiagnostic, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := make([]*safemode.FailureDiagnostic, len(r.diags))
	copy(sorted, r.diags)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At.After(sorted[j].At) })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}
