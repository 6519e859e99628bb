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
)

// CampaignRepository implements repository.CampaignRepository using
// PostgreSQL.
type CampaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a new PostgreSQL campaign repository.
func NewCampaignRepository(db *sql.DB) repository.CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create inserts a new campaign row.
func (r *CampaignRepository) Create(ctx context.Context, campaign *entity.Campaign) error {
	return RLSExec(ctx, r.db, tenant.ID(campaign.TenantID), func(tx *sql.Tx) error {
		query := `
			INSERT INTO campaigns (tenant_id, campaign_date, total_assigned, status, distributed_at)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING campaign_id, created_at
		`
		return tx.QueryRowContext(ctx, query,
			campaign.TenantID, campaign.CampaignDate, campaign.TotalAssigned, campaign.Status, campaign.DistributedAt,
		).Scan(&campaign.CampaignID, &campaign.CreatedAt)
	})
}

// GetByID retrieves a campaign by id.
func (r *CampaignRepository) GetByID(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) (*entity.Campaign, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (*entity.Campaign, error) {
		query := `
			SELECT campaign_id, campaign_date, total_assigned, status, distributed_at, tenant_id, created_at
			FROM campaigns
			WHERE campaign_id = $1
		`
		c := &entity.Campaign{}
		err := tx.QueryRowContext(ctx, query, campaignID).Scan(
			&c.CampaignID, &c.CampaignDate, &c.TotalAssigned, &c.Status, &c.DistributedAt, &c.TenantID, &c.CreatedAt,
		)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get campaign: %w", err)
		}
		return c, nil
	})
}

// SetTotalAssigned updates total_assigned, the last step of DailySelect.
func (r *CampaignRepository) SetTotalAssigned(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, total int) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE campaigns SET total_assigned = $1 WHERE campaign_id = $2`, total, campaignID)
		return err
	})
}

// SetDistributed stamps distributed_at, checked by Distribute's
// already-distributed precondition.
func (r *CampaignRepository) SetDistributed(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, at time.Time) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE campaigns SET distributed_at = $1 WHERE campaign_id = $2`, at, campaignID)
		return err
	})
}

// SetSyncStatus sets status = true iff every packed queue pushed cleanly.
func (r *CampaignRepository) SetSyncStatus(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, synced bool) error {
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE campaigns SET status = $1 WHERE campaign_id = $2`, synced, campaignID)
		return err
	})
}

// PurgeOlderThan deletes campaign rows whose campaign_date predates the
// cutoff, part of PurgeOldTelemetry (C9).
func (r *CampaignRepository) PurgeOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (int64, error) {
		result, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE campaign_date < $1`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to purge campaigns: %w", err)
		}
		return result.RowsAffected()
	})
}
