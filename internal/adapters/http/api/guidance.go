// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// GuidanceHandler handles session lifecycle and action submission.
type GuidanceHandler struct {
	deps Dependencies
}

// NewGuidanceHandler creates a new guidance handler.
func NewGuidanceHandler(deps Dependencies) *GuidanceHandler {
	return &GuidanceHandler{deps: deps}
}

// sessionRequest is shared by POST /guidance/init and /guidance/toggle.
type sessionRequest struct {
	ParticipantID string `json:"participant_id"`
}

func (r sessionRequest) validate() error {
	if strings.TrimSpace(r.ParticipantID) == "" {
		return errors.New("missing participant_id")
	}
	return nil
}

// actionRequest mirrors the POST /guidance/action payload.
type actionRequest struct {
	ParticipantID string                 `json:"participant_id"`
	Action        string                 `json:"action"`
	Context       map[string]interface{} `json:"context,omitempty"`
}

func (r actionRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ParticipantID) == "":
		return errors.New("missing participant_id")
	case strings.TrimSpace(r.Action) == "":
		return errors.New("missing action")
	}
	return nil
}

// HandleInit handles POST /guidance/init requests.
func (h *GuidanceHandler) HandleInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := h.deps.InitializeGuidance(r.Context(), req.ParticipantID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleToggle handles POST /guidance/toggle requests.
func (h *GuidanceHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	snap, err := h.deps.ToggleGuidanceMode(r.Context(), req.ParticipantID)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleAction handles POST /guidance/action requests.
func (h *GuidanceHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	result, err := h.deps.SubmitAction(r.Context(), req.ParticipantID, req.Action, req.Context)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleGetState handles GET /guidance/state/{participant_id} requests.
func (h *GuidanceHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/guidance/state/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	snap, ok := h.deps.GetState(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "session_not_found", nil)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
