package store

import (
	"context"
	"math"
	"sync"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
)

const earthRadiusKm = 6371.0

// InMemorySource implements Source with a mutex-protected map. It backs the
// demo harness and tests; production deployments plug the real participant
// service in behind the same interface.
type InMemorySource struct {
	mu           sync.RWMutex
	participants map[string]model.Participant
}

// NewInMemorySource creates an empty in-memory source.
func NewInMemorySource() *InMemorySource {
	return &InMemorySource{participants: make(map[string]model.Participant)}
}

// Seed inserts or replaces a participant projection.
func (s *InMemorySource) Seed(p model.Participant) {
	s.mu.Lock()
	s.participants[p.ID] = p.Clone()
	s.mu.Unlock()
}

// GetParticipant returns the projection for id.
func (s *InMemorySource) GetParticipant(_ context.Context, id string) (model.Participant, error) {
	s.mu.RLock()
	p, ok := s.participants[id]
	s.mu.RUnlock()
	if !ok {
		return model.Participant{}, ErrNotFound
	}
	return p.Clone(), nil
}

// SaveParticipant writes back a mutated projection.
func (s *InMemorySource) SaveParticipant(_ context.Context, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; !ok {
		return ErrNotFound
	}
	s.participants[p.ID] = p.Clone()
	return nil
}

// ScoreDistribution returns scores for the category, or the global
// population when category is empty. Category scores come from the matching
// accumulated metric; participants without that metric are excluded.
func (s *InMemorySource) ScoreDistribution(_ context.Context, category string) ([]ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ScoreRecord, 0, len(s.participants))
	for _, p := range s.participants {
		if category == "" {
			out = append(out, ScoreRecord{ParticipantID: p.ID, Score: p.Score})
			continue
		}
		if v, ok := p.Metrics[category]; ok {
			out = append(out, ScoreRecord{ParticipantID: p.ID, Score: v})
		}
	}
	return out, nil
}

// ScoresWithin returns global scores for participants within radiusKm of
// origin.
func (s *InMemorySource) ScoresWithin(_ context.Context, origin model.Coordinates, radiusKm float64) ([]ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ScoreRecord
	for _, p := range s.participants {
		if haversineKm(origin, p.Location) <= radiusKm {
			out = append(out, ScoreRecord{ParticipantID: p.ID, Score: p.Score})
		}
	}
	return out, nil
}

// Count returns the number of seeded participants.
func (s *InMemorySource) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants)
}

// haversineKm returns the great-circle distance between two points.
func haversineKm(a, b model.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
