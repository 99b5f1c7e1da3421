package server

import (
	"encoding/json"
	"net/http"

	"github.com/teemow/agenda/internal/failure"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind failure.Kind) int {
	switch kind {
	case failure.KindValidation:
		return http.StatusBadRequest
	case failure.KindParse:
		return http.StatusUnprocessableEntity
	case failure.KindNotFound:
		return http.StatusNotFound
	case failure.KindAgent, failure.KindCollaborator:
		return http.StatusBadGateway
	case failure.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure renders err as a structured error response.
func writeFailure(w http.ResponseWriter, err error) {
	kind := failure.KindOf(err)
	if kind == "" {
		kind = failure.KindUnknown
	}
	writeJSON(w, StatusFor(kind), ErrorResponse{
		Error:   string(kind),
		Message: failure.Message(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
