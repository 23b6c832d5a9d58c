package calibration

import "math"

// brierScore is the mean squared error between probabilities and outcomes.
func brierScore(probs []float64, outcomes []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	sum := 0.0
	for i, p := range probs {
		diff := p - float64(outcomes[i])
		sum += diff * diff
	}
	return sum / float64(len(probs))
}

// logLoss is the mean negative log-likelihood. Probabilities are clamped
// away from 0 and 1 before taking logs.
func logLoss(probs []float64, outcomes []int) float64 {
	if len(probs) == 0 {
		return 0
	}
	sum := 0.0
	for i, p := range probs {
		p = clampOpen(p)
		if outcomes[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(probs))
}

// expectedCalibrationError bins predictions by probability and averages the
// absolute gap between predicted probability and observed frequency,
// weighted by bin occupancy.
func expectedCalibrationError(probs []float64, outcomes []int, bins int) float64 {
	if len(probs) == 0 || bins <= 0 {
		return 0
	}

	binProbSum := make([]float64, bins)
	binOutcomeSum := make([]float64, bins)
	binCount := make([]int, bins)

	for i, p := range probs {
		idx := int(p * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		binProbSum[idx] += p
		binOutcomeSum[idx] += float64(outcomes[i])
		binCount[idx]++
	}

	ece := 0.0
	total := float64(len(probs))
	for i := 0; i < bins; i++ {
		if binCount[i] == 0 {
			continue
		}
		n := float64(binCount[i])
		avgProb := binProbSum[i] / n
		avgOutcome := binOutcomeSum[i] / n
		ece += (n / total) * math.Abs(avgProb-avgOutcome)
	}
	return ece
}
