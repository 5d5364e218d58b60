// Package confidence computes the bounded guidance confidence score.
package confidence

import (
	"math"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
)

// Weights for the three confidence terms. The total is clamped to [0,100];
// each term is individually capped at its weight.
const (
	certificationWeight  = 50.0
	progressWeight       = 30.0
	achievementWeight    = 20.0
	pointsPerAchievement = 4.0
)

// Score returns the confidence for the given inputs as an integer in
// [0,100]. certFraction and progressFraction are clamped to [0,1] before
// weighting; achievements contribute a fixed number of points each, capped
// at the achievement weight. The result is monotone in all three inputs.
func Score(certFraction, progressFraction float64, achievements int) int {
	cert := clamp01(certFraction) * certificationWeight
	progress := clamp01(progressFraction) * progressWeight
	unlocked := math.Min(float64(achievements)*pointsPerAchievement, achievementWeight)
	if achievements < 0 {
		unlocked = 0
	}

	total := int(math.Round(cert + progress + unlocked))
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

// ForParticipant computes the confidence from a participant projection.
func ForParticipant(p model.Participant) int {
	return Score(
		p.Metric(model.MetricCertificationProgress),
		p.Metric(model.MetricOverallProgress),
		len(p.Unlocked),
	)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
