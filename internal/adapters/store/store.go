// Package store defines the participant score source consumed by the engine.
// The authoritative participant records live in an external system; the
// engine only reads and writes the narrow projection in model.Participant.
package store

import (
	"context"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
)

// ScoreRecord is one participant's score within a distribution.
type ScoreRecord struct {
	ParticipantID string
	Score         float64
}

// Source provides read/write access to participant projections and the score
// distributions the ranking engine consumes.
type Source interface {
	// GetParticipant returns the projection for id.
	// Returns ErrNotFound if the participant is unknown.
	GetParticipant(ctx context.Context, id string) (model.Participant, error)

	// SaveParticipant writes back a mutated projection.
	SaveParticipant(ctx context.Context, p model.Participant) error

	// ScoreDistribution returns all scores for the given category, or the
	// global population when category is empty. Order is unspecified.
	ScoreDistribution(ctx context.Context, category string) ([]ScoreRecord, error)

	// ScoresWithin returns scores for participants located within radiusKm
	// of origin.
	ScoresWithin(ctx context.Context, origin model.Coordinates, radiusKm float64) ([]ScoreRecord, error)
}
