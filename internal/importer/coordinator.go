package importer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hushmetrics/hushmetrics/internal/errs"
	"github.com/hushmetrics/hushmetrics/internal/model"
)

// Credential is the result of external credential validation. Validation
// itself belongs to an external collaborator; the coordinator only
// consumes the outcome plus an opaque account identifier.
type Credential struct {
	AccountID string
	Valid     bool
}

// Source reads rows from the external analytics platform.
type Source interface {
	CountRows(ctx context.Context, propertyID string, start, end time.Time) (int, error)
	FetchRows(ctx context.Context, propertyID string, start, end time.Time, offset, limit int) ([]SourceRow, error)
}

// StatWriter persists normalized imported rows.
type StatWriter interface {
	InsertImported(ctx context.Context, siteID string, stats []ImportedStat) error
}

// JobRepository persists import jobs. SetStatus is guarded by the
// expected current status so concurrent transitions cannot clobber a
// terminal state.
type JobRepository interface {
	Create(ctx context.Context, job *model.ImportJob) error
	// Get returns nil, nil when the job does not exist.
	Get(ctx context.Context, id string) (*model.ImportJob, error)
	// SetStatus transitions from → to. Reports whether the guard matched.
	SetStatus(ctx context.Context, id string, from, to model.ImportStatus) (bool, error)
	SetProgress(ctx context.Context, id string, importedRows int) error
	// SetFailure marks the job failed, preserving imported row progress.
	SetFailure(ctx context.Context, id string, message string) error
}

// Coordinator drives bulk import jobs through their state machine.
type Coordinator struct {
	jobs      JobRepository
	writer    StatWriter
	source    Source
	batchSize int
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator. A non-positive batchSize falls
// back to DefaultBatchSize.
func NewCoordinator(jobs JobRepository, writer StatWriter, source Source, batchSize int, logger *slog.Logger) *Coordinator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Coordinator{
		jobs:      jobs,
		writer:    writer,
		source:    source,
		batchSize: batchSize,
		logger:    logger.With("component", "importer.coordinator"),
	}
}

// Start validates the request, sizes the job and records it as pending.
// The caller launches Run to actually move rows.
func (c *Coordinator) Start(ctx context.Context, siteID string, cred Credential, propertyID string, startDate, endDate time.Time) (*model.ImportJob, error) {
	if siteID == "" {
		return nil, errs.Validationf("site id is required")
	}
	if propertyID == "" {
		return nil, errs.Validationf("source property id is required")
	}
	if !cred.Valid {
		return nil, errs.Authorization("import credential is not valid")
	}

	start := startDate.UTC().Truncate(24 * time.Hour)
	end := endDate.UTC().Truncate(24 * time.Hour)
	if start.After(end) {
		return nil, errs.Validationf("start date is after end date")
	}

	total, err := c.source.CountRows(ctx, propertyID, start, end)
	if err != nil {
		return nil, errs.Upstream("count source rows", err)
	}

	now := time.Now().UTC()
	job := &model.ImportJob{
		ID:               uuid.New().String(),
		SiteID:           siteID,
		SourcePropertyID: propertyID,
		SourceAccountID:  cred.AccountID,
		StartDate:        start,
		EndDate:          end,
		Status:           model.ImportStatusPending,
		TotalRows:        total,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := c.jobs.Create(ctx, job); err != nil {
		return nil, errs.Upstream("create import job", err)
	}

	c.logger.Info("import job created",
		"job_id", job.ID,
		"site_id", siteID,
		"total_rows", total,
	)
	return job, nil
}

// Run executes the batch loop for a pending job. Cancellation is
// cooperative: the loop re-reads job status every batch and stops within
// one iteration of a cancel.
func (c *Coordinator) Run(ctx context.Context, jobID string) error {
	job, err := c.getJob(ctx, jobID)
	if err != nil {
		return err
	}

	ok, err := c.jobs.SetStatus(ctx, jobID, model.ImportStatusPending, model.ImportStatusInProgress)
	if err != nil {
		return errs.Upstream("start import job", err)
	}
	if !ok {
		return errs.Conflict("import job is not pending")
	}

	imported := job.ImportedRows
	for _, batch := range CalculateBatches(job.TotalRows, c.batchSize) {
		// Resume: skip batches a previous run already landed.
		if batch.Offset+batch.Limit <= imported {
			continue
		}

		if err := ctx.Err(); err != nil {
			return c.fail(jobID, "import interrupted", err)
		}

		current, err := c.getJob(ctx, jobID)
		if err != nil {
			return err
		}
		if current.Status == model.ImportStatusCancelled {
			c.logger.Info("import job cancelled mid-run", "job_id", jobID, "imported_rows", imported)
			return nil
		}

		rows, err := c.source.FetchRows(ctx, job.SourcePropertyID, job.StartDate, job.EndDate, batch.Offset, batch.Limit)
		if err != nil {
			return c.fail(jobID, "fetch source rows", err)
		}

		stats := make([]ImportedStat, len(rows))
		for i, row := range rows {
			stats[i] = MapRow(row)
		}
		if err := c.writer.InsertImported(ctx, job.SiteID, stats); err != nil {
			return c.fail(jobID, "write imported rows", err)
		}

		imported = batch.Offset + len(rows)
		if err := c.jobs.SetProgress(ctx, jobID, imported); err != nil {
			return c.fail(jobID, "record progress", err)
		}
	}

	ok, err = c.jobs.SetStatus(ctx, jobID, model.ImportStatusInProgress, model.ImportStatusCompleted)
	if err != nil {
		return errs.Upstream("complete import job", err)
	}
	if !ok {
		// Cancelled between the last batch and completion; nothing to undo.
		return nil
	}

	c.logger.Info("import job completed", "job_id", jobID, "imported_rows", imported)
	return nil
}

// Cancel requests cancellation. Terminal jobs reject with a conflict and
// are never mutated.
func (c *Coordinator) Cancel(ctx context.Context, jobID string) error {
	job, err := c.getJob(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.Status.CanTransition(model.ImportStatusCancelled) {
		return errs.Conflict("import job is " + string(job.Status))
	}

	ok, err := c.jobs.SetStatus(ctx, jobID, job.Status, model.ImportStatusCancelled)
	if err != nil {
		return errs.Upstream("cancel import job", err)
	}
	if !ok {
		// Raced another transition; re-read for an accurate reason.
		current, err := c.getJob(ctx, jobID)
		if err != nil {
			return err
		}
		if current.Status == model.ImportStatusCancelled {
			return nil
		}
		return errs.Conflict("import job is " + string(current.Status))
	}

	c.logger.Info("import job cancelled", "job_id", jobID)
	return nil
}

// Status returns the job, including progress.
func (c *Coordinator) Status(ctx context.Context, jobID string) (*model.ImportJob, error) {
	return c.getJob(ctx, jobID)
}

func (c *Coordinator) getJob(ctx context.Context, jobID string) (*model.ImportJob, error) {
	job, err := c.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, errs.Upstream("load import job", err)
	}
	if job == nil {
		return nil, errs.NotFound("import job not found")
	}
	return job, nil
}

// fail marks the job failed. Progress recorded so far stays on the row
// for diagnosis and resume decisions.
func (c *Coordinator) fail(jobID, message string, cause error) error {
	c.logger.Error("import job failed", "job_id", jobID, "reason", message, "error", cause)

	// Best-effort with a fresh context: the run context may already be dead.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.jobs.SetFailure(ctx, jobID, message+": "+cause.Error()); err != nil {
		c.logger.Error("failed to record import failure", "job_id", jobID, "error", err)
	}
	return errs.Upstream(message, cause)
}
