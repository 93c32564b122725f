package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hushmetrics/hushmetrics/internal/realtime"
)

// RealtimeHandler serves the live site activity view.
type RealtimeHandler struct {
	store          *realtime.Store
	logger         *slog.Logger
	trendSlice     time.Duration
	trendThreshold float64
}

// NewRealtimeHandler creates a new RealtimeHandler. Zero trend settings
// fall back to the store defaults.
func NewRealtimeHandler(store *realtime.Store, logger *slog.Logger, trendSlice time.Duration, trendThreshold float64) *RealtimeHandler {
	return &RealtimeHandler{
		store:          store,
		logger:         logger,
		trendSlice:     trendSlice,
		trendThreshold: trendThreshold,
	}
}

// Snapshot handles GET /api/v1/sites/{siteID}/realtime.
// Query parameters: window (minutes), limit (top-N size).
func (h *RealtimeHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if siteID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SITE_ID", "Site ID is required")
		return
	}

	query := realtime.Query{
		TrendSlice:     h.trendSlice,
		TrendThreshold: h.trendThreshold,
	}
	if window := r.URL.Query().Get("window"); window != "" {
		parsed, err := strconv.Atoi(window)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_WINDOW", "window must be an integer number of minutes")
			return
		}
		// An explicit zero is out of range, not a request for the
		// default; only an absent parameter means default.
		if parsed == 0 {
			writeError(w, http.StatusBadRequest, "INVALID_WINDOW", "window must be between 1 and 1440 minutes")
			return
		}
		query.WindowMinutes = parsed
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			query.Limit = parsed
		}
	}

	snapshot, err := h.store.Snapshot(siteID, query, time.Now())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}
