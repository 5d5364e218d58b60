package api

import (
	"errors"
	"net/http"

	"github.com/markdotcom5/markmvp5-sub000/internal/adapters/store"
	"github.com/markdotcom5/markmvp5-sub000/internal/ranking"
	"github.com/markdotcom5/markmvp5-sub000/internal/session"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// statusFor translates upstream sentinel errors into an HTTP status and a
// machine-readable code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "participant_not_found"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, ranking.ErrInvalidScope):
		return http.StatusBadRequest, "invalid_scope"
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusServiceUnavailable, "data_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeUpstreamError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}
