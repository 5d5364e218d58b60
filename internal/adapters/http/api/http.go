// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/markdotcom5/markmvp5-sub000/internal/app"
	"github.com/markdotcom5/markmvp5-sub000/internal/bus"
	"github.com/markdotcom5/markmvp5-sub000/internal/domain/types"
)

// RankQuery mirrors the scope selector accepted by ranking lookups.
type RankQuery = service.RankQuery

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Session lifecycle and guidance operations.
	InitializeGuidance(ctx context.Context, participantID string) (types.SessionSnapshot, error)
	ToggleGuidanceMode(ctx context.Context, participantID string) (types.SessionSnapshot, error)
	GetState(ctx context.Context, participantID string) (types.SessionSnapshot, bool)
	SubmitAction(ctx context.Context, participantID, action string, actionCtx map[string]interface{}) (types.GuidanceResult, error)

	// Read operations expose ranking data.
	GetRanking(ctx context.Context, participantID string, q RankQuery) (types.RankingResult, error)

	// Live update channel registration.
	SubscribeToUpdates(participantID string, ch bus.Channel)
	UnsubscribeFromUpdates(participantID string, ch bus.Channel)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	guidanceHandler *GuidanceHandler
	rankingHandler  *RankingHandler
	streamHandler   *StreamHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		guidanceHandler: NewGuidanceHandler(deps),
		rankingHandler:  NewRankingHandler(deps),
		streamHandler:   NewStreamHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/guidance/init", MetricsMiddleware(s.guidanceHandler.HandleInit, "guidance_init"))
	mux.HandleFunc("/guidance/toggle", MetricsMiddleware(s.guidanceHandler.HandleToggle, "guidance_toggle"))
	mux.HandleFunc("/guidance/action", MetricsMiddleware(s.guidanceHandler.HandleAction, "guidance_action"))
	mux.HandleFunc("/guidance/state/", MetricsMiddleware(s.guidanceHandler.HandleGetState, "guidance_state"))
	mux.HandleFunc("/ranking/", MetricsMiddleware(s.rankingHandler.HandleGetRanking, "ranking"))
	mux.HandleFunc("/ws/", s.streamHandler.HandleStream)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
