package backtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/models"
)

func contestAt(start time.Time, winnerID string) *models.Contest {
	return &models.Contest{
		ID:        uuid.New(),
		Venue:     "ascot",
		StartTime: start,
		Scores:    map[string]float64{"fav": 0.6, "out": 0.2},
		Quotes: map[string]models.MarketQuote{
			"fav": {SelectionID: "fav", Odds: 4.0},
			"out": {SelectionID: "out", Odds: 4.0},
		},
		WinnerID: winnerID,
	}
}

func hourlyHistory(n int) []*models.Contest {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	out := make([]*models.Contest, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, contestAt(base.Add(time.Duration(i)*time.Hour), "fav"))
	}
	return out
}

func TestSplitProducesExpandingTrainWindows(t *testing.T) {
	history := hourlyHistory(9)

	folds, err := Split(history, 2)
	require.NoError(t, err)
	require.Len(t, folds, 2)

	// 9 contests, 3 chunks of 3: fold 1 trains on 3 and tests 3, fold 2
	// trains on 6 and tests the final 3.
	assert.Len(t, folds[0].Train, 3)
	assert.Len(t, folds[0].Test, 3)
	assert.Len(t, folds[1].Train, 6)
	assert.Len(t, folds[1].Test, 3)

	for _, f := range folds {
		assert.False(t, f.TrainEnd.After(f.TestStart),
			"fold %d trains past its test window", f.Index)
	}
	assert.True(t, folds[0].TestEnd.Before(folds[1].TestStart))
}

func TestSplitSortsUnorderedHistory(t *testing.T) {
	history := hourlyHistory(8)
	// Shuffle deterministically by reversing.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}

	folds, err := Split(history, 3)
	require.NoError(t, err)
	require.NoError(t, ValidateChronology(folds))

	for _, f := range folds {
		for i := 1; i < len(f.Test); i++ {
			assert.False(t, f.Test[i].StartTime.Before(f.Test[i-1].StartTime))
		}
	}
}

func TestSplitRejectsBadInput(t *testing.T) {
	history := hourlyHistory(4)

	_, err := Split(history, 0)
	assert.Error(t, err)

	_, err = Split(history, -1)
	assert.Error(t, err)

	// 4 contests cannot fill 5 chunks.
	_, err = Split(history, 4)
	assert.Error(t, err)
}

func TestValidateChronologyCatchesLookahead(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	bad := []FoldWindow{{
		Index:      1,
		TrainStart: base,
		TrainEnd:   base.Add(48 * time.Hour),
		TestStart:  base.Add(24 * time.Hour),
		TestEnd:    base.Add(72 * time.Hour),
	}}
	assert.Error(t, ValidateChronology(bad))

	overlapping := []FoldWindow{
		{
			Index:     1,
			TrainEnd:  base,
			TestStart: base.Add(time.Hour),
			TestEnd:   base.Add(10 * time.Hour),
		},
		{
			Index:     2,
			TrainEnd:  base.Add(2 * time.Hour),
			TestStart: base.Add(5 * time.Hour),
			TestEnd:   base.Add(15 * time.Hour),
		},
	}
	assert.Error(t, ValidateChronology(overlapping))
}
