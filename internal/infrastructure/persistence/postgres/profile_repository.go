package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// uniqueViolation is the Postgres SQLSTATE for a unique_violation error.
const uniqueViolation = "23505"

// ProfileRepository implements repository.ProfileRepository using
// PostgreSQL. Grounded on generation_job_repository.go's RLS-scoped
// transaction idiom, adapted to the RawProfile/GlobalProfile pair.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &ProfileRepository{db: db}
}

// ExistingProfileIDs returns the subset of ids already present in the
// tenant's global_profiles table.
func (r *ProfileRepository) ExistingProfileIDs(ctx context.Context, tenantID tenant.ID, ids []string) (map[string]struct{}, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (map[string]struct{}, error) {
		query := `SELECT profile_id FROM global_profiles WHERE profile_id = ANY($1)`
		rows, err := tx.QueryContext(ctx, query, pq.Array(ids))
		if err != nil {
			return nil, fmt.Errorf("failed to probe existing profile ids: %w", err)
		}
		defer rows.Close()

		found := make(map[string]struct{}, len(ids))
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("failed to scan profile id: %w", err)
			}
			found[id] = struct{}{}
		}
		return found, rows.Err()
	})
}

// InsertRawProfiles appends raw scrape events in a single multi-row insert.
func (r *ProfileRepository) InsertRawProfiles(ctx context.Context, tenantID tenant.ID, profiles []*entity.RawProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	return RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO raw_profiles (tenant_id, profile_id, username, display_name, scraped_at)
			VALUES ($1, $2, $3, $4, $5)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare raw profile insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range profiles {
			if _, err := stmt.ExecContext(ctx, p.TenantID, p.ProfileID, p.Username, p.DisplayName, p.ScrapedAt); err != nil {
				return fmt.Errorf("failed to insert raw profile %s: %w", p.ProfileID, err)
			}
		}
		return nil
	})
}

// InsertRawProfile inserts a single RawProfile, used by the per-row
// fallback when a batch insert fails partway through.
func (r *ProfileRepository) InsertRawProfile(ctx context.Context, profile *entity.RawProfile) error {
	return RLSExec(ctx, r.db, tenant.ID(profile.TenantID), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO raw_profiles (tenant_id, profile_id, username, display_name, scraped_at)
			VALUES ($1, $2, $3, $4, $5)
		`, profile.TenantID, profile.ProfileID, profile.Username, profile.DisplayName, profile.ScrapedAt)
		return err
	})
}

// InsertGlobalProfiles inserts new GlobalProfile rows in a single
// transaction. A unique-violation on any one row is reported as
// repository.ErrDuplicateProfile so the caller can fall back to the
// per-row insert and skip only the colliding rows.
func (r *ProfileRepository) InsertGlobalProfiles(ctx context.Context, tenantID tenant.ID, profiles []*entity.GlobalProfile) error {
	if len(profiles) == 0 {
		return nil
	}
	err := RLSExec(ctx, r.db, tenantID, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO global_profiles (tenant_id, profile_id, username, display_name, used)
			VALUES ($1, $2, $3, $4, false)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare global profile insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range profiles {
			if _, err := stmt.ExecContext(ctx, p.TenantID, p.ProfileID, p.Username, p.DisplayName); err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return repository.ErrDuplicateProfile
	}
	return err
}

// InsertGlobalProfile inserts a single GlobalProfile; used by the per-row
// fallback when a batch insert collides.
func (r *ProfileRepository) InsertGlobalProfile(ctx context.Context, profile *entity.GlobalProfile) error {
	err := RLSExec(ctx, r.db, tenant.ID(profile.TenantID), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO global_profiles (tenant_id, profile_id, username, display_name, used)
			VALUES ($1, $2, $3, $4, false)
		`, profile.TenantID, profile.ProfileID, profile.Username, profile.DisplayName)
		return err
	})
	if isUniqueViolation(err) {
		return repository.ErrDuplicateProfile
	}
	return err
}

// SelectUnused returns up to limit GlobalProfile rows with used=false.
func (r *ProfileRepository) SelectUnused(ctx context.Context, tenantID tenant.ID, limit int) ([]*entity.GlobalProfile, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) ([]*entity.GlobalProfile, error) {
		query := `
			SELECT profile_id, username, display_name, used, used_at, created_at, tenant_id
			FROM global_profiles
			WHERE used = false
			ORDER BY created_at ASC
			LIMIT $1
		`
		rows, err := tx.QueryContext(ctx, query, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to select unused profiles: %w", err)
		}
		defer rows.Close()

		var profiles []*entity.GlobalProfile
		for rows.Next() {
			p := &entity.GlobalProfile{}
			if err := rows.Scan(&p.ProfileID, &p.Username, &p.DisplayName, &p.Used, &p.UsedAt, &p.CreatedAt, &p.TenantID); err != nil {
				return nil, fmt.Errorf("failed to scan global profile: %w", err)
			}
			profiles = append(profiles, p)
		}
		return profiles, rows.Err()
	})
}

// MarkUsed flips used=false -> true, used_at=now on the given ids, only
// for rows currently used=false, and returns the count actually affected.
func (r *ProfileRepository) MarkUsed(ctx context.Context, tenantID tenant.ID, profileIDs []string) (int, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (int, error) {
		query := `
			UPDATE global_profiles
			SET used = true, used_at = NOW()
			WHERE profile_id = ANY($1) AND used = false
		`
		result, err := tx.ExecContext(ctx, query, pq.Array(profileIDs))
		if err != nil {
			return 0, fmt.Errorf("failed to mark profiles used: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows: %w", err)
		}
		return int(affected), nil
	})
}

// PurgeRawProfilesOlderThan deletes RawProfile rows whose scraped_at
// predates the cutoff.
func (r *ProfileRepository) PurgeRawProfilesOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error) {
	return RLSQuery(ctx, r.db, tenantID, func(tx *sql.Tx) (int64, error) {
		result, err := tx.ExecContext(ctx, `DELETE FROM raw_profiles WHERE scraped_at < $1`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("failed to purge raw profiles: %w", err)
		}
		return result.RowsAffected()
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}
