package model

import "time"

// EventType tags a NotificationEvent.
type EventType string

const (
	EventProgressUpdate      EventType = "progress_update"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventRankUpdate          EventType = "rank_update"
	EventError               EventType = "error"
)

// NotificationEvent is the unit of fan-out delivery. It is consumed once by
// the bus and never persisted by the engine.
type NotificationEvent struct {
	Type      EventType              `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(t EventType, payload map[string]interface{}) NotificationEvent {
	return NotificationEvent{
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Recommendation is the next-best-action surfaced to a participant while in
// assisted mode.
type Recommendation struct {
	Action     string    `json:"action"`
	Focus      string    `json:"focus"`
	Coaching   string    `json:"coaching,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

// Same reports whether two recommendations point at the same next action.
// Coaching text and timestamps do not count; the monitor loop uses this to
// decide whether a recomputed action actually changed.
func (r Recommendation) Same(other Recommendation) bool {
	return r.Action == other.Action && r.Focus == other.Focus
}
