// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/transport/ws"
	"github.com/markdotcom5/markmvp5-sub000/pkg/logger"
)

// StreamHandler upgrades connections and registers them as live update
// channels for a participant.
type StreamHandler struct {
	deps     Dependencies
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies) *StreamHandler {
	return &StreamHandler{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// HandleStream handles GET /ws/{participant_id} requests. The connection
// stays open until the client disconnects; every event published for the
// participant is pushed as one text frame.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/ws/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the failure response.
		logger.Get().Debug(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	var ch *ws.Channel
	ch = ws.NewChannel(conn, ws.WithOnClose(func() {
		h.deps.UnsubscribeFromUpdates(id, ch)
	}))
	h.deps.SubscribeToUpdates(id, ch)

	// Inbound frames are ignored; the read pump only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			_ = ch.Close()
			return
		}
	}
}
