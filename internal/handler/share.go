package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hushmetrics/hushmetrics/internal/handler/dto"
	"github.com/hushmetrics/hushmetrics/internal/middleware"
	"github.com/hushmetrics/hushmetrics/internal/model"
	"github.com/hushmetrics/hushmetrics/internal/share"
	"github.com/hushmetrics/hushmetrics/internal/stats"
)

// SharePasswordHeader carries the password for protected share links.
const SharePasswordHeader = "X-Share-Password"

// ShareHandler manages share tokens and the public shared-stats view.
type ShareHandler struct {
	governor *share.Governor
	engine   *stats.Engine
	logger   *slog.Logger
}

// NewShareHandler creates a new ShareHandler.
func NewShareHandler(governor *share.Governor, engine *stats.Engine, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		governor: governor,
		engine:   engine,
		logger:   logger,
	}
}

// Create handles POST /api/v1/sites/{siteID}/shares.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "siteID")
	if siteID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_SITE_ID", "Site ID is required")
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	var req dto.CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	periods := make([]model.SharePeriod, len(req.AllowedPeriods))
	for i, period := range req.AllowedPeriods {
		periods[i] = model.SharePeriod(period)
	}

	opts := share.CreateOptions{
		ExpiresIn:      time.Duration(req.ExpiresInHours) * time.Hour,
		AllowedPeriods: periods,
		Password:       req.Password,
	}

	token, err := h.governor.Create(r.Context(), siteID, identity.UserID, opts)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("share_created",
		"site_id", token.SiteID,
		"password_protected", token.PasswordProtected(),
		"has_expiry", token.ExpiresAt != nil,
	)

	writeJSON(w, http.StatusCreated, dto.ToShareResponse(token))
}

// Revoke handles DELETE /api/v1/shares/{token}.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")
	if tokenValue == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN", "Share token is required")
		return
	}

	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	if err := h.governor.Revoke(r.Context(), tokenValue, identity.UserID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SharedStats handles GET /api/v1/shared/{token}.
// Public, unauthenticated: access is governed entirely by the token.
// Query parameter period selects the pre-defined range; the password
// for protected links travels in the X-Share-Password header.
func (h *ShareHandler) SharedStats(w http.ResponseWriter, r *http.Request) {
	tokenValue := chi.URLParam(r, "token")
	if tokenValue == "" {
		writeError(w, http.StatusBadRequest, "MISSING_TOKEN", "Share token is required")
		return
	}

	period := model.SharePeriod(r.URL.Query().Get("period"))
	if period == "" {
		period = model.Period7d
	}
	password := r.Header.Get(SharePasswordHeader)

	grant, err := h.governor.Validate(r.Context(), tokenValue, period, password)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	start, end := period.Range(time.Now())
	summary, err := h.engine.ComputeStats(r.Context(), grant.SiteID, start, end, nil)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
