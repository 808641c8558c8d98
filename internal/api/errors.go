package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PawornpratKongdaeng/shodaiev/internal/siteconfig"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeNotFound           = "not_found"
	ErrCodeUnauthorized       = "unauthorised"
	ErrCodePreconditionFailed = "precondition_failed"
	ErrCodeUnavailable        = "unavailable"
	ErrCodeInternal           = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeStoreError maps a siteconfig error onto an HTTP status.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, siteconfig.ErrInvalidPatch), errors.Is(err, siteconfig.ErrIndexOutOfRange):
		writeBadRequest(w, err.Error())
	case errors.Is(err, siteconfig.ErrTopicNotFound), errors.Is(err, siteconfig.ErrSectionNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, siteconfig.ErrRevisionMismatch):
		writeError(w, http.StatusPreconditionFailed, ErrCodePreconditionFailed,
			"site config changed since it was loaded; reload and try again")
	case errors.Is(err, siteconfig.ErrStorageUnavailable):
		s.logger.Error("site config storage unavailable", "op", op, "error", err, "request_id", requestID(r))
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "save failed, retry")
	default:
		s.logger.Error("site config operation failed", "op", op, "error", err, "request_id", requestID(r))
		writeInternalError(w, "internal server error")
	}
}
