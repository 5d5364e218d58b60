// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/markdotcom5/markmvp5-sub000/internal/domain/model"
)

// RankingHandler handles ranking lookups.
type RankingHandler struct {
	deps Dependencies
}

// NewRankingHandler creates a new ranking handler.
func NewRankingHandler(deps Dependencies) *RankingHandler {
	return &RankingHandler{deps: deps}
}

// HandleGetRanking handles GET /ranking/{participant_id} requests.
//
// Query parameters select the population:
//
//	scope     global (default) | category | local
//	category  metric key, category scope only
//	radius_km positive radius, local scope only
//	lat, lon  optional origin override, local scope only
func (h *RankingHandler) HandleGetRanking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/ranking/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	q := RankQuery{
		Scope:    r.URL.Query().Get("scope"),
		Category: r.URL.Query().Get("category"),
	}
	if raw := r.URL.Query().Get("radius_km"); raw != "" {
		radius, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		q.RadiusKm = radius
	}
	if origin, ok, err := parseOrigin(r); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	} else if ok {
		q.Origin = origin
	}

	result, err := h.deps.GetRanking(r.Context(), id, q)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseOrigin reads the optional lat/lon pair. Supplying only one of the two
// is a client error.
func parseOrigin(r *http.Request) (*model.Coordinates, bool, error) {
	rawLat := r.URL.Query().Get("lat")
	rawLon := r.URL.Query().Get("lon")
	if rawLat == "" && rawLon == "" {
		return nil, false, nil
	}
	if rawLat == "" || rawLon == "" {
		return nil, false, ErrBadRequest
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, false, ErrBadRequest
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return nil, false, ErrBadRequest
	}
	return &model.Coordinates{Lat: lat, Lon: lon}, true, nil
}
