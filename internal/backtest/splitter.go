// Package backtest replays the full decision pipeline over historical
// contests under a chronological split and reports per-fold performance.
package backtest

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/oddsmith/internal/models"
)

// FoldWindow is one chronological train/test split. Training data never
// includes contests dated after the fold's test window, and later folds'
// test windows strictly follow earlier folds'.
type FoldWindow struct {
	Index      int       `json:"index"`
	TrainStart time.Time `json:"train_start"`
	TrainEnd   time.Time `json:"train_end"`
	TestStart  time.Time `json:"test_start"`
	TestEnd    time.Time `json:"test_end"`

	Train []*models.Contest `json:"-"`
	Test  []*models.Contest `json:"-"`
}

// Split partitions history into nFolds chronological folds. Contests are
// sorted by start time and divided into nFolds+1 contiguous chunks; fold k
// tests chunk k+1 with an expanding training window of chunks 1..k. This
// construction makes lookahead impossible by design.
func Split(history []*models.Contest, nFolds int) ([]FoldWindow, error) {
	if nFolds <= 0 {
		return nil, fmt.Errorf("fold count must be positive, got %d", nFolds)
	}
	if len(history) < nFolds+1 {
		return nil, fmt.Errorf("not enough contests (%d) for %d folds", len(history), nFolds)
	}

	sorted := make([]*models.Contest, len(history))
	copy(sorted, history)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	chunks := chunkContests(sorted, nFolds+1)
	folds := make([]FoldWindow, 0, nFolds)

	trainEnd := 0
	for k := 0; k < nFolds; k++ {
		trainEnd += len(chunks[k])
		test := chunks[k+1]

		train := sorted[:trainEnd]
		fold := FoldWindow{
			Index:      k + 1,
			TrainStart: train[0].StartTime,
			TrainEnd:   train[len(train)-1].StartTime,
			TestStart:  test[0].StartTime,
			TestEnd:    test[len(test)-1].StartTime,
			Train:      train,
			Test:       test,
		}
		folds = append(folds, fold)
	}

	if err := ValidateChronology(folds); err != nil {
		// A violation here is a bug in the splitter, not bad input.
		return nil, err
	}
	return folds, nil
}

// ValidateChronology verifies the single most important invariant of the
// harness: no test date ever precedes a training date used to decide it,
// and test windows strictly advance across folds.
func ValidateChronology(folds []FoldWindow) error {
	for i, f := range folds {
		if f.TrainEnd.After(f.TestStart) {
			return fmt.Errorf("fold %d: train window ends %s after test window starts %s",
				f.Index, f.TrainEnd.Format(time.RFC3339), f.TestStart.Format(time.RFC3339))
		}
		if i > 0 {
			prev := folds[i-1]
			if !prev.TestStart.Before(f.TestStart) {
				return fmt.Errorf("fold %d test window does not follow fold %d", f.Index, prev.Index)
			}
			if f.TestStart.Before(prev.TestEnd) {
				return fmt.Errorf("fold %d test window overlaps fold %d", f.Index, prev.Index)
			}
		}
	}
	return nil
}

func chunkContests(contests []*models.Contest, n int) [][]*models.Contest {
	chunks := make([][]*models.Contest, n)
	size := len(contests) / n
	rem := len(contests) % n

	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		chunks[i] = contests[start:end]
		start = end
	}
	return chunks
}
