package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// AssignmentRepository implements repository.AssignmentRepository using
// PostgreSQL.
type AssignmentRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new PostgreSQL assignment repository.
func NewAssignmentRepository(db *sql.DB) repository.AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// InsertPlaceholders inserts queue_index=0, position=0 rows for a freshly
// selected campaign working set.
func (r *AssignmentRepository) InsertPlaceholders(ctx context.Context, assignments []*entity.Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	tenantID := tenant.ID(assignments[0].TenantID)
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO assignments (assignment_id, campaign_id, profile_id, username, display_name, queue_index, position, state, assigned_at, tenant_id)
			VALUES ($1, $2, $3, $4, $5, 0, 0, $6, NOW(), $7)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare placeholder insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range assignments {
			if _, err := stmt.ExecContext(ctx, a.AssignmentID, a.CampaignID, a.ProfileID, a.Username, a.DisplayName, a.State.String(), a.TenantID); err != nil {
				return fmt.Errorf("failed to insert placeholder for profile %s: %w", a.ProfileID, err)
			}
		}
		return nil
	})
}

// PlaceholdersForCampaign returns all queue_index=0 rows for a campaign,
// the Distributor's fan-out input.
func (r *AssignmentRepository) PlaceholdersForCampaign(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) ([]*entity.Assignment, error) {
	return r.selectByQueuePredicate(ctx, tenantID, `campaign_id = $1 AND queue_index = 0`, campaignID)
}

// PackedForCampaign returns all queue_index>0 rows for a campaign, ordered
// by (queue_index, position) ascending, the Sync push input.
func (r *AssignmentRepository) PackedForCampaign(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) ([]*entity.Assignment, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) ([]*entity.Assignment, error) {
		query := `
			SELECT assignment_id, campaign_id, profile_id, username, display_name, queue_index, position, state, assigned_at, updated_at, tenant_id
			FROM assignments
			WHERE campaign_id = $1 AND queue_index > 0
			ORDER BY queue_index ASC, position ASC
		`
		return scanAssignments(ctx, tx, query, campaignID)
	})
}

func (r *AssignmentRepository) selectByQueuePredicate(ctx context.Context, tenantID tenant.ID, predicate string, args ...interface{}) ([]*entity.Assignment, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) ([]*entity.Assignment, error) {
		query := fmt.Sprintf(`
			SELECT assignment_id, campaign_id, profile_id, username, display_name, queue_index, position, state, assigned_at, updated_at, tenant_id
			FROM assignments
			WHERE %s
		`, predicate)
		return scanAssignments(ctx, tx, query, args...)
	})
}

func scanAssignments(ctx context.Context, tx *sql.Tx, query string, args ...interface{}) ([]*entity.Assignment, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Assignment
	for rows.Next() {
		a := &entity.Assignment{}
		var stateStr string
		if err := rows.Scan(&a.AssignmentID, &a.CampaignID, &a.ProfileID, &a.Username, &a.DisplayName, &a.QueueIndex, &a.Position, &stateStr, &a.AssignedAt, &a.UpdatedAt, &a.TenantID); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		state, err := valueobject.ParseAssignmentState(stateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse assignment state %q: %w", stateStr, err)
		}
		a.State = state
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateSlot persists one Assignment's queue_index/position/state after
// packing.
func (r *AssignmentRepository) UpdateSlot(ctx context.Context, a *entity.Assignment) error {
	return RLSExec(ctx, r.db, tenant.ID(a.TenantID), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE assignments
			SET queue_index = $1, position = $2, state = $3, updated_at = NOW()
			WHERE assignment_id = $4
		`, a.QueueIndex, a.Position, a.State.String(), a.AssignmentID)
		return err
	})
}

// ByTenantProfileQueue locates the single Assignment matching (tenant_id,
// profile_id, queue_index) for the pull-sync reconciler.
func (r *AssignmentRepository) ByTenantProfileQueue(ctx context.Context, tenantID tenant.ID, profileID string, queueIndex int) (*entity.Assignment, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (*entity.Assignment, error) {
		query := `
			SELECT assignment_id, campaign_id, profile_id, username, display_name, queue_index, position, state, assigned_at, updated_at, tenant_id
			FROM assignments
			WHERE profile_id = $1 AND queue_index = $2
			ORDER BY assigned_at DESC
			LIMIT 1
		`
		a := &entity.Assignment{}
		var stateStr string
		err := tx.QueryRowContext(ctx, query, profileID, queueIndex).Scan(
			&a.AssignmentID, &a.CampaignID, &a.ProfileID, &a.Username, &a.DisplayName, &a.QueueIndex, &a.Position, &stateStr, &a.AssignedAt, &a.UpdatedAt, &a.TenantID,
		)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to locate assignment: %w", err)
		}
		state, err := valueobject.ParseAssignmentState(stateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse assignment state %q: %w", stateStr, err)
		}
		a.State = state
		return a, nil
	})
}

// UpdateState sets state and bumps updated_at for one Assignment.
func (r *AssignmentRepository) UpdateState(ctx context.Context, tenantID tenant.ID, assignmentID uuid.UUID, state valueobject.AssignmentState, at time.Time) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE assignments SET state = $1, updated_at = $2 WHERE assignment_id = $3`, state.String(), at, assignmentID)
		return err
	})
}

// AgingCandidates returns Assignments eligible for the union of
// pending->unfollow and followed->unfollow aging.
func (r *AssignmentRepository) AgingCandidates(ctx context.Context, tenantID tenant.ID, cutoff time.Time) ([]*entity.Assignment, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) ([]*entity.Assignment, error) {
		query := `
			SELECT assignment_id, campaign_id, profile_id, username, display_name, queue_index, position, state, assigned_at, updated_at, tenant_id
			FROM assignments
			WHERE state IN ($1, $2) AND assigned_at <= $3
		`
		return scanAssignments(ctx, tx, query, valueobject.AssignmentPending.String(), valueobject.AssignmentFollowed.String(), cutoff)
	})
}

// CompletedOlderThan returns Assignments with state=completed and
// updated_at <= cutoff, the DeleteCompletedAfterDelay input.
func (r *AssignmentRepository) CompletedOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) ([]*entity.Assignment, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) ([]*entity.Assignment, error) {
		query := `
			SELECT assignment_id, campaign_id, profile_id, username, display_name, queue_index, position, state, assigned_at, updated_at, tenant_id
			FROM assignments
			WHERE state = $1 AND updated_at <= $2
		`
		return scanAssignments(ctx, tx, query, valueobject.AssignmentCompleted.String(), cutoff)
	})
}

// Delete removes a single Assignment row, used only after its external
// record has already been deleted.
func (r *AssignmentRepository) Delete(ctx context.Context, tenantID tenant.ID, assignmentID uuid.UUID) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE assignment_id = $1`, assignmentID)
		return err
	})
}

// PurgeOlderThan deletes Assignment rows whose assigned_at predates the
// cutoff, part of PurgeOldTelemetry (C9).
func (r *AssignmentRepository) PurgeOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (int64, error) {
		result, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE assigned_at < $1`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to purge assignments: %w", err)
		}
		return result.RowsAffected()
	})
}

var _ repository.AssignmentRepository = (*AssignmentRepository)(nil)
