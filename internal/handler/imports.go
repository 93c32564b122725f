package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hushmetrics/hushmetrics/internal/handler/dto"
	"github.com/hushmetrics/hushmetrics/internal/importer"
	"github.com/hushmetrics/hushmetrics/internal/middleware"
)

// CredentialResolver resolves the caller's external analytics
// credential for import authorization.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string) (importer.Credential, error)
}

// ImportHandler manages bulk import jobs.
type ImportHandler struct {
	coordinator *importer.Coordinator
	credentials CredentialResolver
	logger      *slog.Logger
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(coordinator *importer.Coordinator, credentials CredentialResolver, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		coordinator: coordinator,
		credentials: credentials,
		logger:      logger,
	}
}

// Start handles POST /api/v1/sites/{siteID}/imports.
// The job is recorded as pending and runs in the background; the
// response carries the job for status polling.
func (h *ImportHandler) Start(w http.ResponseWriter, r *http.Request) {
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

	var req dto.StartImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	cred, err := h.credentials.Resolve(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	job, err := h.coordinator.Start(r.Context(), siteID, cred, req.PropertyID, req.StartDate, req.EndDate)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("import_started",
		"job_id", job.ID,
		"site_id", job.SiteID,
		"total_rows", job.TotalRows,
	)

	// Run detached from the request; progress is observable via Status.
	go func() {
		if err := h.coordinator.Run(context.Background(), job.ID); err != nil {
			h.logger.Error("import run failed", "job_id", job.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, dto.ToImportJobResponse(job))
}

// Status handles GET /api/v1/imports/{jobID}.
func (h *ImportHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_JOB_ID", "Job ID is required")
		return
	}

	job, err := h.coordinator.Status(r.Context(), jobID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImportJobResponse(job))
}

// Cancel handles POST /api/v1/imports/{jobID}/cancel.
// Cancelling a terminal job is a conflict; the running batch loop
// observes the cancellation within one batch iteration.
func (h *ImportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "MISSING_JOB_ID", "Job ID is required")
		return
	}

	if err := h.coordinator.Cancel(r.Context(), jobID); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	job, err := h.coordinator.Status(r.Context(), jobID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToImportJobResponse(job))
}
