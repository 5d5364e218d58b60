// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	service "github.com/markdotcom5/markmvp5-sub000/internal/app"
)

// EngineStats is the typed load snapshot served at /stats: session and
// assisted-session counts, live delivery channels, and the configured
// tick/TTL durations.
type EngineStats = service.Stats

// StatsProvider exposes the engine's load snapshot.
type StatsProvider interface {
	GetStats() EngineStats
}

// StatsHandler serves the engine load snapshot.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
