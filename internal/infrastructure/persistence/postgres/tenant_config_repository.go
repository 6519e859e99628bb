package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// TenantConfigRepository implements repository.TenantConfigRepository
// using PostgreSQL. tenant_configs is looked up by the tenant id itself
// rather than filtered by a session-scoped RLS variable, so this
// repository talks to the plain *sql.DB directly the way
// company_repository.go does, instead of going through RLSExec/RLSQuery.
type TenantConfigRepository struct {
	db *sql.DB
}

// NewTenantConfigRepository creates a new PostgreSQL tenant config
// repository.
func NewTenantConfigRepository(db *sql.DB) repository.TenantConfigRepository {
	return &TenantConfigRepository{db: db}
}

// GetByTenantID retrieves a tenant's config row, or nil if none exists.
func (r *TenantConfigRepository) GetByTenantID(ctx context.Context, tenantID tenant.ID) (*entity.TenantConfig, error) {
	query := `
		SELECT tenant_id, num_vas, external_base_id, encrypted_external_token, created_at, updated_at
		FROM tenant_configs
		WHERE tenant_id = $1
	`
	cfg := &entity.TenantConfig{}
	err := r.db.QueryRowContext(ctx, query, string(tenantID)).Scan(
		&cfg.TenantID, &cfg.NumVAs, &cfg.ExternalBaseID, &cfg.EncryptedExternalToken, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant config: %w", err)
	}
	return cfg, nil
}

// Upsert inserts or updates a tenant's config row.
func (r *TenantConfigRepository) Upsert(ctx context.Context, cfg *entity.TenantConfig) error {
	query := `
		INSERT INTO tenant_configs (tenant_id, num_vas, external_base_id, encrypted_external_token, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (tenant_id) DO UPDATE SET
			num_vas = EXCLUDED.num_vas,
			external_base_id = EXCLUDED.external_base_id,
			encrypted_external_token = EXCLUDED.encrypted_external_token,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, cfg.TenantID, cfg.NumVAs, cfg.ExternalBaseID, cfg.EncryptedExternalToken)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant config: %w", err)
	}
	return nil
}

// ListTenantIDs returns every tenant with a config row, the iteration
// source for periodic cross-tenant sweeps.
func (r *TenantConfigRepository) ListTenantIDs(ctx context.Context) ([]tenant.ID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tenant_id FROM tenant_configs ORDER BY tenant_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant ids: %w", err)
	}
	defer rows.Close()

	var ids []tenant.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		ids = append(ids, tenant.ID(id))
	}
	return ids, rows.Err()
}
