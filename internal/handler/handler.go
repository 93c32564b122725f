// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hushmetrics/hushmetrics/internal/errs"
)

// ErrorResponse is the error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Handler wraps application dependencies shared by the small handlers.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// handleServiceError maps a service error to an HTTP response. The
// error kind decides the status; the message is passed through except
// for upstream and configuration failures, which stay opaque.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errs.KindAuthorization:
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errs.KindNotFound:
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errs.KindConflict:
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errs.KindUpstream:
		logger.Error("upstream error", "error", err)
		writeError(w, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "A backing service is unavailable")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
