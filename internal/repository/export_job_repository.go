package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// ExportJobRepository manages persistence for asynchronous export jobs.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs an ExportJobRepository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusQueued
	}

	const query = `INSERT INTO export_jobs (id, params, status, progress, result_path, created_by, created_at, finished_at, error_message)
		VALUES (:id, :params, :status, :progress, :result_path, :created_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// FindByID fetches an export job by ID.
func (r *ExportJobRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, params, status, progress, result_path, created_by, created_at, finished_at, error_message FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateStatus transitions a job's lifecycle state and progress.
func (r *ExportJobRepository) UpdateStatus(ctx context.Context, id string, status models.ExportStatus, progress int) error {
	const query = `UPDATE export_jobs SET status = $2, progress = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, progress); err != nil {
		return fmt.Errorf("update export job status: %w", err)
	}
	return nil
}

// MarkFinished records a successful export and its artifact location.
func (r *ExportJobRepository) MarkFinished(ctx context.Context, id string, resultPath string) error {
	const query = `UPDATE export_jobs SET status = $2, progress = 100, result_path = $3, finished_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFinished, resultPath, time.Now().UTC()); err != nil {
		return fmt.Errorf("finish export job: %w", err)
	}
	return nil
}

// MarkFailed records a failed export with its error message.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id string, message string) error {
	const query = `UPDATE export_jobs SET status = $2, finished_at = $3, error_message = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ExportStatusFailed, time.Now().UTC(), message); err != nil {
		return fmt.Errorf("fail export job: %w", err)
	}
	return nil
}

// DeleteOlderThan removes finished or failed jobs past their retention
// window and returns their artifact paths for storage cleanup.
func (r *ExportJobRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM export_jobs WHERE finished_at IS NOT NULL AND finished_at < $1 RETURNING COALESCE(result_path, '')`
	var paths []string
	if err := r.db.SelectContext(ctx, &paths, query, cutoff.UTC()); err != nil {
		return nil, fmt.Errorf("prune export jobs: %w", err)
	}
	cleaned := paths[:0]
	for _, p := range paths {
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return cleaned, nil
}
