package service

import "github.com/markdotcom5/markmvp5-sub000/internal/session"

// Actions the route layer may submit, re-exported from the session package
// that owns their effects.
const (
	ActionModuleCompleted     = session.ActionModuleCompleted
	ActionAssessmentSubmitted = session.ActionAssessmentSubmitted
	ActionDailyCheckin        = session.ActionDailyCheckin
)
