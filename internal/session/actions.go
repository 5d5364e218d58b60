package session

import (
	"encoding/json"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
)

// Actions a participant can submit.
const (
	ActionModuleCompleted     = "module_completed"
	ActionAssessmentSubmitted = "assessment_submitted"
	ActionDailyCheckin        = "daily_checkin"
)

// Score and progress effects per action.
const (
	moduleBasePoints  = 10.0
	moduleHardPoints  = 25.0
	assessmentPoints  = 5.0
	progressPerModule = 0.02
	certPerHardModule = 0.05
)

// applyAction folds an action's effects into the participant projection.
// Unknown actions only refresh activity; they never error. The caller holds
// the session mutex, so the read-modify-write cannot race a concurrent
// submission for the same participant.
func applyAction(p *model.Participant, action string, actionCtx map[string]interface{}) {
	if p.Metrics == nil {
		p.Metrics = make(map[string]float64)
	}

	switch action {
	case ActionModuleCompleted:
		points := moduleBasePoints
		if difficulty, _ := actionCtx["difficulty"].(string); difficulty == "hard" {
			points = moduleHardPoints
			p.Metrics[model.MetricHardCompletions]++
			p.Metrics[model.MetricCertificationProgress] = clampFraction(
				p.Metrics[model.MetricCertificationProgress] + certPerHardModule)
		}
		p.Score += points
		p.Metrics[model.MetricOverallProgress] = clampFraction(
			p.Metrics[model.MetricOverallProgress] + progressPerModule)
		if minutes, ok := toFloat(actionCtx["minutes"]); ok && minutes > 0 {
			p.Metrics[model.MetricEngagedMinutes] += minutes
		}
		if category, _ := actionCtx["category"].(string); category != "" {
			p.Metrics[category] += points
		}

	case ActionAssessmentSubmitted:
		if score, ok := toFloat(actionCtx["score"]); ok && score > p.Metric(model.MetricAssessmentScore) {
			p.Metrics[model.MetricAssessmentScore] = score
		}
		p.Score += assessmentPoints

	case ActionDailyCheckin:
		p.Metrics[model.MetricStreakDays]++
		if minutes, ok := toFloat(actionCtx["minutes"]); ok && minutes > 0 {
			p.Metrics[model.MetricEngagedMinutes] += minutes
		}
	}
}

func clampFraction(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

// toFloat normalizes the numeric types that survive JSON decoding.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
