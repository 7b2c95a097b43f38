package utils

import (
	"math"

	"fitLadderAPI/internal/ladder"
)

// UnverifiedCap is the highest score an unverified user can hold.
const UnverifiedCap = 100.0

// CalculateLadderScore averages the five sub-scores to one decimal. The
// result is 0 unless every assessment has been completed.
func CalculateLadderScore(scores ladder.AssessmentScores) float64 {
	values := scores.Values()
	sum := 0.0
	for _, v := range values {
		if !(v > 0) || math.IsInf(v, 0) {
			return 0
		}
		sum += v
	}
	return Round(sum/float64(len(values)), 1)
}

// ApplyLimitBreak caps an unverified score at 100.
func ApplyLimitBreak(raw float64, verified bool) float64 {
	if verified {
		return raw
	}
	return math.Min(raw, UnverifiedCap)
}

func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
