package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hushmetrics/hushmetrics/internal/cache"
	"github.com/hushmetrics/hushmetrics/internal/metrics"
	"github.com/hushmetrics/hushmetrics/internal/stats"
)

const dateLayout = "2006-01-02"

// StatsHandler serves historical summary statistics.
type StatsHandler struct {
	engine   *stats.Engine
	cache    *cache.Cache
	cacheTTL time.Duration
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewStatsHandler creates a new StatsHandler. cacheClient may be nil to
// disable summary caching.
func NewStatsHandler(engine *stats.Engine, cacheClient *cache.Cache, cacheTTL time.Duration, recorder metrics.Recorder, logger *slog.Logger) *StatsHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &StatsHandler{
		engine:   engine,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
		metrics:  recorder,
		logger:   logger,
	}
}

// Summary handles GET /api/v1/sites/{siteID}/stats.
// Query parameters: start, end (YYYY-MM-DD, inclusive), dimensions
// (comma-separated subset of pages,referrers,devices,browsers,countries).
func (h *StatsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if siteID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SITE_ID", "Site ID is required")
		return
	}

	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE_RANGE", err.Error())
		return
	}

	dimensions := parseDimensions(r.URL.Query().Get("dimensions"))

	if h.cache != nil {
		key := cache.StatsKey(siteID, start, end, dimensions)
		if cached, err := h.cache.GetStats(r.Context(), key); err == nil {
			h.metrics.IncStatsCache("hit")
			writeJSON(w, http.StatusOK, cached)
			return
		}
		h.metrics.IncStatsCache("miss")
	}

	begin := time.Now()
	summary, err := h.engine.ComputeStats(r.Context(), siteID, start, end, dimensions)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	h.metrics.ObserveStatsQueryDuration(time.Since(begin))

	if h.cache != nil {
		key := cache.StatsKey(siteID, start, end, dimensions)
		if err := h.cache.SetStats(r.Context(), key, summary, h.cacheTTL); err != nil {
			h.logger.Warn("stats cache write failed", "site_id", siteID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" || endRaw == "" {
		return time.Time{}, time.Time{}, errors.New("start and end dates are required")
	}

	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("start must be a YYYY-MM-DD date")
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("end must be a YYYY-MM-DD date")
	}
	return start, end, nil
}

func parseDimensions(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	dimensions := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			dimensions = append(dimensions, trimmed)
		}
	}
	if len(dimensions) == 0 {
		return nil
	}
	return dimensions
}
