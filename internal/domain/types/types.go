// Package types contains the read shapes returned to the external route layer.
package types

import "time"

// Recommendation mirrors the stored next-best-action for API consumers.
type Recommendation struct {
	Action   string `json:"action"`
	Focus    string `json:"focus"`
	Coaching string `json:"coaching,omitempty"`
}

// SessionSnapshot is a point-in-time view of a guidance session.
type SessionSnapshot struct {
	ParticipantID  string          `json:"participant_id"`
	Mode           string          `json:"mode"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Confidence     int             `json:"confidence"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// GuidanceResult is returned from action submission. In manual mode only the
// Suggestion field is freshly computed; the rest reflects the stored session.
type GuidanceResult struct {
	Mode           string          `json:"mode"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Coaching       string          `json:"coaching,omitempty"`
	Suggestion     string          `json:"suggestion,omitempty"`
	Confidence     int             `json:"confidence"`
	Achievements   []string        `json:"achievements,omitempty"`
}

// RankingResult is a participant's position within a scope.
type RankingResult struct {
	Rank       int     `json:"rank"`
	Total      int     `json:"total"`
	Percentile float64 `json:"percentile"`
	Label      string  `json:"label"`
}
