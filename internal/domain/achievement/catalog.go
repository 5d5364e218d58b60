// Package achievement evaluates participant metrics against a fixed catalog.
package achievement

import "github.com/markdotcom5/markmvp5-sub000/internal/domain/model"

// Criterion is one catalog entry. The catalog is read-only at runtime.
type Criterion struct {
	ID          string
	Name        string
	Description string

	// Satisfied reads only the metrics relevant to the criterion. Absent
	// metrics read as zero and therefore fail the predicate.
	Satisfied func(p model.Participant) bool
}

// Fixed thresholds for the default catalog.
const (
	assessmentThreshold     = 90
	streakThresholdDays     = 7
	engagedThresholdMinutes = 600
	hardCompletionThreshold = 3
)

// DefaultCatalog returns the fixed criterion catalog.
func DefaultCatalog() []Criterion {
	return []Criterion{
		{
			ID:          "assessment_ace",
			Name:        "Assessment Ace",
			Description: "Score 90 or above on an assessment",
			Satisfied: func(p model.Participant) bool {
				return p.Metric(model.MetricAssessmentScore) >= assessmentThreshold
			},
		},
		{
			ID:          "week_streak",
			Name:        "Week Streak",
			Description: "Stay active for 7 consecutive days",
			Satisfied: func(p model.Participant) bool {
				return p.Metric(model.MetricStreakDays) >= streakThresholdDays
			},
		},
		{
			ID:          "deep_diver",
			Name:        "Deep Diver",
			Description: "Accumulate 10 hours of engaged training time",
			Satisfied: func(p model.Participant) bool {
				return p.Metric(model.MetricEngagedMinutes) >= engagedThresholdMinutes
			},
		},
		{
			ID:          "hard_charger",
			Name:        "Hard Charger",
			Description: "Complete 3 hard-difficulty modules",
			Satisfied: func(p model.Participant) bool {
				return p.Metric(model.MetricHardCompletions) >= hardCompletionThreshold
			},
		},
	}
}
