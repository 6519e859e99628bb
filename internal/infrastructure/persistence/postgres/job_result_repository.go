package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// JobResultRepository implements repository.JobResultRepository using
// PostgreSQL.
type JobResultRepository struct {
	db *sql.DB
}

// NewJobResultRepository creates a new PostgreSQL job result repository.
func NewJobResultRepository(db *sql.DB) repository.JobResultRepository {
	return &JobResultRepository{db: db}
}

// InsertBatch inserts a chunk of filtered JobResult rows. Callers are
// expected to chunk at JobResultInsertChunkSize before calling.
func (r *JobResultRepository) InsertBatch(ctx context.Context, results []*entity.JobResult) error {
	if len(results) == 0 {
		return nil
	}
	tenantID := tenant.ID(results[0].TenantID)
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO job_results (job_id, profile_id, username, display_name, tenant_id)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare job result insert: %w", err)
		}
		defer stmt.Close()

		for _, jr := range results {
			if _, err := stmt.ExecContext(ctx, jr.JobID, jr.ProfileID, jr.Username, jr.DisplayName, jr.TenantID); err != nil {
				return fmt.Errorf("failed to insert job result for profile %s: %w", jr.ProfileID, err)
			}
		}
		return nil
	})
}

// Page returns one page of JobResults for a job, ordered created_at desc,
// alongside the total row count.
func (r *JobResultRepository) Page(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, page, limit int) (*entity.JobResultPage, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (*entity.JobResultPage, error) {
		var total int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_results WHERE job_id = $1`, jobID).Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to count job results: %w", err)
		}

		offset := (page - 1) * limit
		rows, err := tx.QueryContext(ctx, `
			SELECT job_id, profile_id, username, display_name, created_at, tenant_id
			FROM job_results
			WHERE job_id = $1
			ORDER BY created_at DESC
			LIMIT $2 OFFSET $3
		`, jobID, limit, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to page job results: %w", err)
		}
		defer rows.Close()

		var items []*entity.JobResult
		for rows.Next() {
			jr := &entity.JobResult{}
			if err := rows.Scan(&jr.JobID, &jr.ProfileID, &jr.Username, &jr.DisplayName, &jr.CreatedAt, &jr.TenantID); err != nil {
				return nil, fmt.Errorf("failed to scan job result: %w", err)
			}
			items = append(items, jr)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		return &entity.JobResultPage{Page: page, Limit: limit, Total: total, Profiles: items}, nil
	})
}
