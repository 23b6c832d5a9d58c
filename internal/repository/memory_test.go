package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/models"
)

func TestMemoryContestRepository(t *testing.T) {
	repo := NewMemoryContestRepository()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	c1 := &models.Contest{ID: uuid.New(), StartTime: base, WinnerID: "fav"}
	c2 := &models.Contest{ID: uuid.New(), StartTime: base.Add(time.Hour)}

	require.NoError(t, repo.Upsert(ctx, c1))
	require.NoError(t, repo.Upsert(ctx, c2))

	got, err := repo.GetByID(ctx, c1.ID)
	require.NoError(t, err)
	assert.Equal(t, "fav", got.WinnerID)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)

	// Only c1 is settled.
	settled, err := repo.GetSettled(ctx, base.Add(-time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.Equal(t, c1.ID, settled[0].ID)

	require.NoError(t, repo.SetWinner(ctx, c2.ID, "out"))
	settled, err = repo.GetSettled(ctx, base.Add(-time.Hour), base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, settled, 2)
	// Chronological order.
	assert.Equal(t, c1.ID, settled[0].ID)
	assert.Equal(t, c2.ID, settled[1].ID)

	assert.ErrorIs(t, repo.SetWinner(ctx, uuid.New(), "x"), models.ErrNotFound)
}

func TestMemoryContestRepositoryReturnsCopies(t *testing.T) {
	repo := NewMemoryContestRepository()
	ctx := context.Background()

	c := &models.Contest{ID: uuid.New(), StartTime: time.Now(), WinnerID: "fav"}
	require.NoError(t, repo.Upsert(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	got.WinnerID = "mutated"

	again, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "fav", again.WinnerID)
}

func TestMemorySettlementRepositoryRejectsDuplicates(t *testing.T) {
	repo := NewMemorySettlementRepository()
	ctx := context.Background()

	s := &models.Settlement{
		BetID:       uuid.New(),
		ContestID:   uuid.New(),
		SelectionID: "fav",
		Stake:       decimal.NewFromFloat(30),
		Returns:     decimal.NewFromFloat(120),
		Outcome:     models.BetOutcomeWin,
		SettledAt:   time.Now(),
	}

	require.NoError(t, repo.Create(ctx, s))
	assert.ErrorIs(t, repo.Create(ctx, s), models.ErrDuplicateKey)

	byContest, err := repo.GetByContestID(ctx, s.ContestID)
	require.NoError(t, err)
	assert.Len(t, byContest, 1)
}

func TestMemoryCalibrationRepositoryLatest(t *testing.T) {
	repo := NewMemoryCalibrationRepository()
	ctx := context.Background()

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, models.ErrNotFound)

	older := models.CalibrationParameters{Slope: 0.8, FittedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	newer := models.CalibrationParameters{Slope: 1.1, FittedAt: time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.Save(ctx, newer))
	require.NoError(t, repo.Save(ctx, older))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.1, latest.Slope)
}
