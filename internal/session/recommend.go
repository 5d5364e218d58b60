package session

import (
	"time"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/types"
)

// Heuristic thresholds for next-best-action selection.
const (
	weakAssessmentScore = 70
	advancedPercentile  = 80
	streakGoalDays      = 7
)

// deriveRecommendation picks the next-best-action from the participant's
// accumulated metrics and current standing. Ordered from most to least
// urgent; the first matching rule wins, which keeps the result stable
// between ticks when nothing material changed.
func deriveRecommendation(p model.Participant, rank types.RankingResult) model.Recommendation {
	now := time.Now().UTC()

	switch {
	case p.Metric(model.MetricAssessmentScore) < weakAssessmentScore:
		return model.Recommendation{Action: "retake_assessment", Focus: "assessment", ComputedAt: now}
	case p.Metric(model.MetricCertificationProgress) < 1:
		return model.Recommendation{Action: "continue_certification", Focus: "certification", ComputedAt: now}
	case p.Metric(model.MetricStreakDays) < streakGoalDays:
		return model.Recommendation{Action: "daily_checkin", Focus: "consistency", ComputedAt: now}
	case rank.Percentile >= advancedPercentile:
		return model.Recommendation{Action: "attempt_hard_module", Focus: "advanced", ComputedAt: now}
	default:
		return model.Recommendation{Action: "practice_core_module", Focus: "fundamentals", ComputedAt: now}
	}
}

// quickSuggestion is the lightweight manual-mode response. No external
// calls, no recomputation.
func quickSuggestion(action string) string {
	switch action {
	case "module_completed":
		return "Nice finish. Queue up the next module while it's fresh."
	case "assessment_submitted":
		return "Assessment in. Review the answer breakdown while you wait."
	case "daily_checkin":
		return "Checked in. Short daily sessions beat long rare ones."
	default:
		return "Logged. Pick your next module whenever you're ready."
	}
}
