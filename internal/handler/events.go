package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hushmetrics/hushmetrics/internal/handler/dto"
	"github.com/hushmetrics/hushmetrics/internal/ingest"
)

// EventHandler handles tracker event submissions.
type EventHandler struct {
	svc         *ingest.Service
	logger      *slog.Logger
	maxBodySize int64
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(svc *ingest.Service, logger *slog.Logger, maxBodySize int64) *EventHandler {
	if maxBodySize <= 0 {
		maxBodySize = 64 * 1024
	}
	return &EventHandler{
		svc:         svc,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// Track handles POST /api/v1/sites/{siteID}/events.
// Accepted events return 202; duplicates return 200 with the duplicate
// outcome since suppression is a success, not an error.
func (h *EventHandler) Track(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if siteID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SITE_ID", "Site ID is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req dto.TrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	props, err := dto.ToProperties(req.Properties)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PROPERTIES", err.Error())
		return
	}

	input := ingest.Request{
		SiteID:      siteID,
		Type:        req.Type,
		Name:        req.Name,
		Path:        req.Path,
		SessionID:   req.SessionID,
		Referrer:    req.Referrer,
		Properties:  props,
		RemoteIP:    clientIP(r),
		UserAgent:   r.UserAgent(),
		CountryHint: countryHint(r),
	}
	if req.Timestamp != nil {
		input.Timestamp = *req.Timestamp
	}

	result, err := h.svc.Ingest(r.Context(), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	status := http.StatusAccepted
	if result.Outcome == ingest.OutcomeDuplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// clientIP resolves the submitting client's address. It is consumed by
// the fingerprint derivation only and must never be logged or echoed.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for i := range xff {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// countryHint reads the edge-provided country header.
func countryHint(r *http.Request) string {
	if cc := r.Header.Get("CF-IPCountry"); cc != "" {
		return cc
	}
	return r.Header.Get("X-Country-Code")
}
