// Package model contains domain models passed between layers.
package model

import "time"

// Mode is the per-participant guidance mode.
type Mode string

const (
	// ModeManual means the participant drives their own progression.
	ModeManual Mode = "manual"
	// ModeAssisted means the engine recomputes a next-best-action on a cadence.
	ModeAssisted Mode = "assisted"
)

// Metric keys tracked on a participant. Values are accumulated levels.
const (
	MetricAssessmentScore       = "assessment_score"
	MetricStreakDays            = "streak_days"
	MetricEngagedMinutes        = "engaged_minutes"
	MetricHardCompletions       = "hard_completions"
	MetricCertificationProgress = "certification_progress" // fraction in [0,1]
	MetricOverallProgress       = "overall_progress"       // fraction in [0,1]
)

// Coordinates is a geographic point used for local ranking scopes.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Participant is the narrow projection of a participant record that the
// engine reads and writes. The full record is owned by the external store.
type Participant struct {
	ID         string             `json:"id"`
	Mode       Mode               `json:"mode"`
	Score      float64            `json:"score"`
	Metrics    map[string]float64 `json:"metrics"`
	Unlocked   map[string]bool    `json:"unlocked"`
	Location   Coordinates        `json:"location"`
	LastActive time.Time          `json:"last_active"`
}

// Metric returns the named metric, treating absent values as zero.
func (p Participant) Metric(key string) float64 {
	if p.Metrics == nil {
		return 0
	}
	return p.Metrics[key]
}

// HasUnlocked reports whether the achievement id is already unlocked.
func (p Participant) HasUnlocked(id string) bool {
	if p.Unlocked == nil {
		return false
	}
	return p.Unlocked[id]
}

// Clone returns a deep copy so callers can mutate projections safely.
func (p Participant) Clone() Participant {
	out := p
	out.Metrics = make(map[string]float64, len(p.Metrics))
	for k, v := range p.Metrics {
		out.Metrics[k] = v
	}
	out.Unlocked = make(map[string]bool, len(p.Unlocked))
	for k, v := range p.Unlocked {
		out.Unlocked[k] = v
	}
	return out
}
