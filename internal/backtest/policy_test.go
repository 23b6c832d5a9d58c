package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/oddsmith/internal/calibration"
	"github.com/yourusername/oddsmith/internal/models"
)

func TestCalibratedScorePolicyFallsBackToIdentity(t *testing.T) {
	calibrator := calibration.NewCalibrator(nil, calibration.WithMinSamples(100))
	factory := CalibratedScorePolicy(calibrator, nil)

	// Two training contests: far below the sample minimum.
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fold := FoldWindow{
		Index: 1,
		Train: []*models.Contest{
			contestAt(base, "fav"),
			contestAt(base.Add(time.Hour), "out"),
		},
	}

	source, err := factory(fold)
	require.NoError(t, err)

	// Identity calibration: probabilities equal the raw scores.
	contest := contestAt(base.Add(48*time.Hour), "fav")
	probs, err := source.Probabilities(context.Background(), contest)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, probs["fav"], 1e-9)
	assert.InDelta(t, 0.2, probs["out"], 1e-9)
}

func TestCalibratedScorePolicyRejectsScorelessContests(t *testing.T) {
	calibrator := calibration.NewCalibrator(nil, calibration.WithMinSamples(100))
	factory := CalibratedScorePolicy(calibrator, nil)

	source, err := factory(FoldWindow{Index: 1})
	require.NoError(t, err)

	contest := contestAt(time.Now(), "fav")
	contest.Scores = nil
	_, err = source.Probabilities(context.Background(), contest)
	assert.Error(t, err)
}

func TestTrainingPairsSkipsUnsettled(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	contests := []*models.Contest{
		contestAt(base, "fav"),
		contestAt(base.Add(time.Hour), ""), // unsettled
	}

	scores, outcomes := trainingPairs(contests)
	assert.Len(t, scores, 2)
	assert.Len(t, outcomes, 2)

	wins := 0
	for _, o := range outcomes {
		wins += o
	}
	assert.Equal(t, 1, wins)
}

func TestStaticPolicyIgnoresFold(t *testing.T) {
	source := ProbabilityFunc(func(ctx context.Context, c *models.Contest) (map[string]float64, error) {
		return map[string]float64{"x": 0.5}, nil
	})
	factory := StaticPolicy(source)

	a, err := factory(FoldWindow{Index: 1})
	require.NoError(t, err)
	b, err := factory(FoldWindow{Index: 2})
	require.NoError(t, err)

	probsA, _ := a.Probabilities(context.Background(), nil)
	probsB, _ := b.Probabilities(context.Background(), nil)
	assert.Equal(t, probsA, probsB)
}
