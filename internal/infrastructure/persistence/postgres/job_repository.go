package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// JobRepository implements repository.JobRepository using PostgreSQL.
// Grounded on generation_job_repository.go's RLS-scoped transaction idiom
// and atomic-counter UPDATE style, adapted to the Job Engine's (C5) fan-
// out/fan-in batch accounting.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new PostgreSQL job repository.
func NewJobRepository(db *sql.DB) repository.JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job row with status=queued.
func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	return RLSExec(ctx, r.db, tenant.ID(job.TenantID), func(tx *sql.Tx) error {
		query := `
			INSERT INTO jobs (tenant_id, status, accounts, target_gender, max_count_per_account, total_batches, current_batch, progress, profiles_scraped, total_scraped, total_filtered)
			VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 0, 0)
			RETURNING job_id, created_at
		`
		return tx.QueryRowContext(ctx, query,
			job.TenantID, job.Status.String(), pq.Array(job.Accounts), job.TargetGender.String(), job.MaxCountPerAccount, job.TotalBatches,
		).Scan(&job.JobID, &job.CreatedAt)
	})
}

// GetByID retrieves a job by id.
func (r *JobRepository) GetByID(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) (*entity.Job, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (*entity.Job, error) {
		query := `
			SELECT job_id, tenant_id, status, accounts, target_gender, max_count_per_account, total_batches, current_batch, progress, profiles_scraped, total_scraped, total_filtered, error_message, created_at, started_at, completed_at
			FROM jobs
			WHERE job_id = $1
		`
		job := &entity.Job{}
		var statusStr, genderStr string
		var accounts []string
		err := tx.QueryRowContext(ctx, query, jobID).Scan(
			&job.JobID, &job.TenantID, &statusStr, pq.Array(&accounts), &genderStr, &job.MaxCountPerAccount, &job.TotalBatches,
			&job.CurrentBatch, &job.Progress, &job.ProfilesScraped, &job.TotalScraped, &job.TotalFiltered, &job.ErrorMessage,
			&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
		)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get job: %w", err)
		}
		job.Accounts = accounts
		status, err := valueobject.ParseJobStatus(statusStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse job status %q: %w", statusStr, err)
		}
		job.Status = status
		if genderStr != "" {
			gender, ok := valueobject.ParseGender(genderStr)
			if !ok {
				return nil, fmt.Errorf("invalid target gender %q", genderStr)
			}
			job.TargetGender = gender
		}
		return job, nil
	})
}

// SetProcessing transitions queued -> processing and stamps started_at.
func (r *JobRepository) SetProcessing(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE jobs SET status = $1, started_at = NOW() WHERE job_id = $2 AND status = $3
		`, valueobject.JobStatusProcessing.String(), jobID, valueobject.JobStatusQueued.String())
		return err
	})
}

// IncrementProfilesScraped atomically adds delta to profiles_scraped.
func (r *JobRepository) IncrementProfilesScraped(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, delta int) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE jobs SET profiles_scraped = profiles_scraped + $1 WHERE job_id = $2`, delta, jobID)
		return err
	})
}

// IncrementBatchesCompleted atomically adds 1 to current_batch and returns
// the post-increment value, the fan-in barrier's counter: the batch task
// that observes current_batch == total_batches is the one responsible for
// enqueuing the aggregate task.
func (r *JobRepository) IncrementBatchesCompleted(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) (int, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (int, error) {
		var current int
		err := tx.QueryRowContext(ctx, `
			UPDATE jobs SET current_batch = current_batch + 1 WHERE job_id = $1
			RETURNING current_batch
		`, jobID).Scan(&current)
		if err != nil {
			return 0, fmt.Errorf("failed to increment batch counter: %w", err)
		}
		return current, nil
	})
}

// MarkFailed sets status=failed, error_message=cause.
func (r *JobRepository) MarkFailed(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, cause string) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE jobs SET status = $1, error_message = $2, completed_at = NOW() WHERE job_id = $3
		`, valueobject.JobStatusFailed.String(), cause, jobID)
		return err
	})
}

// MarkCompleted sets the terminal completed fields atomically.
func (r *JobRepository) MarkCompleted(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, totalScraped, totalFiltered int) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE jobs SET status = $1, total_scraped = $2, total_filtered = $3, progress = 100, completed_at = NOW() WHERE job_id = $4
		`, valueobject.JobStatusCompleted.String(), totalScraped, totalFiltered, jobID)
		return err
	})
}
