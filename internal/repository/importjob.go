package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hushmetrics/hushmetrics/internal/model"
)

// ImportJobRepository provides database access for import jobs,
// implementing importer.JobRepository.
type ImportJobRepository struct {
	repo *Repository
}

// NewImportJobRepository creates a new ImportJobRepository.
func NewImportJobRepository(repo *Repository) *ImportJobRepository {
	return &ImportJobRepository{repo: repo}
}

// Create stores a new import job.
func (r *ImportJobRepository) Create(ctx context.Context, job *model.ImportJob) error {
	query := `
		INSERT INTO import_jobs (
			id, site_id, source_property_id, source_account_id,
			start_date, end_date, status, total_rows, imported_rows,
			error, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.repo.pool.Exec(ctx, query,
		job.ID,
		job.SiteID,
		job.SourcePropertyID,
		job.SourceAccountID,
		job.StartDate,
		job.EndDate,
		string(job.Status),
		job.TotalRows,
		job.ImportedRows,
		nullableString(job.Error),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

// Get loads an import job. Returns nil, nil when it does not exist.
func (r *ImportJobRepository) Get(ctx context.Context, id string) (*model.ImportJob, error) {
	query := `
		SELECT id, site_id, source_property_id, source_account_id,
		       start_date, end_date, status, total_rows, imported_rows,
		       COALESCE(error, ''), created_at, updated_at
		FROM import_jobs
		WHERE id = $1
	`

	var job model.ImportJob
	var status string
	err := r.repo.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.SiteID,
		&job.SourcePropertyID,
		&job.SourceAccountID,
		&job.StartDate,
		&job.EndDate,
		&status,
		&job.TotalRows,
		&job.ImportedRows,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query import job: %w", err)
	}
	job.Status = model.ImportStatus(status)
	return &job, nil
}

// SetStatus transitions the job from → to atomically. Reports whether
// the guard matched; a false result means another transition won.
func (r *ImportJobRepository) SetStatus(ctx context.Context, id string, from, to model.ImportStatus) (bool, error) {
	query := `
		UPDATE import_jobs
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.repo.pool.Exec(ctx, query, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("update import job status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SetProgress records imported row progress.
func (r *ImportJobRepository) SetProgress(ctx context.Context, id string, importedRows int) error {
	query := `
		UPDATE import_jobs
		SET imported_rows = $2, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.repo.pool.Exec(ctx, query, id, importedRows); err != nil {
		return fmt.Errorf("update import job progress: %w", err)
	}
	return nil
}

// SetFailure marks the job failed with a message. Imported row progress
// is left untouched so partial work remains visible.
func (r *ImportJobRepository) SetFailure(ctx context.Context, id string, message string) error {
	query := `
		UPDATE import_jobs
		SET status = $2, error = $3, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.repo.pool.Exec(ctx, query, id, string(model.ImportStatusFailed), message); err != nil {
		return fmt.Errorf("mark import job failed: %w", err)
	}
	return nil
}
