package analysis

import (
	"math"

	"github.com/veriscan/backend/internal/models"
)

// Weights of the authenticity score: the inverse deepfake likelihood
// dominates, positive sentiment contributes a small signal scaled by its own
// percentage, and a flat bonus is halved when any tamper indicator fired.
const (
	likelihoodWeight = 0.6
	sentimentWeight  = 20.0
	cleanBonus       = 20.0
	flaggedBonus     = 10.0
)

// AggregateScore combines the deepfake likelihood, sentiment distribution
// and tamper indicator count into one authenticity score, clamped to
// [0,100]. Higher means more likely genuine.
func AggregateScore(likelihood int, sentiment models.SentimentDistribution, indicatorCount int) int {
	bonus := cleanBonus
	if indicatorCount > 0 {
		bonus = flaggedBonus
	}
	raw := float64(100-likelihood)*likelihoodWeight +
		float64(sentiment.Positive)/100*sentimentWeight +
		bonus

	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
