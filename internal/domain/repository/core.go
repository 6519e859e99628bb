// Package repository declares the storage-facing interfaces every
// application service depends on. Implementations live under
// internal/infrastructure/persistence/postgres; application code never
// imports database/sql or lib/pq directly.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// ProfileRepository backs the Profile Store (C2): durable, tenant-scoped
// storage of raw scrape events and the deduplicated global pool.
type ProfileRepository interface {
	// ExistingProfileIDs returns the subset of ids already present in the
	// tenant's GlobalProfile table, probed in chunks of at most
	// ExistenceProbeChunkSize by the caller.
	ExistingProfileIDs(ctx context.Context, tenantID tenant.ID, ids []string) (map[string]struct{}, error)

	// InsertRawProfiles appends raw scrape events, one row per input,
	// batched by the caller at BulkInsertChunkSize.
	InsertRawProfiles(ctx context.Context, tenantID tenant.ID, profiles []*entity.RawProfile) error

	// InsertRawProfile inserts a single RawProfile; used by the per-row
	// fallback when a batch insert fails.
	InsertRawProfile(ctx context.Context, profile *entity.RawProfile) error

	// InsertGlobalProfiles inserts new GlobalProfile rows, batched by the
	// caller. A unique-violation on a concurrent duplicate insert must be
	// reported via ErrDuplicateProfile, not treated as fatal.
	InsertGlobalProfiles(ctx context.Context, tenantID tenant.ID, profiles []*entity.GlobalProfile) error

	// InsertGlobalProfile inserts a single GlobalProfile; used by the
	// per-row fallback when a batch insert fails.
	InsertGlobalProfile(ctx context.Context, profile *entity.GlobalProfile) error

	// SelectUnused returns up to limit GlobalProfile rows with used=false.
	SelectUnused(ctx context.Context, tenantID tenant.ID, limit int) ([]*entity.GlobalProfile, error)

	// MarkUsed flips used=false -> true, used_at=now on the given ids,
	// only for rows currently used=false, and returns the count affected.
	MarkUsed(ctx context.Context, tenantID tenant.ID, profileIDs []string) (int, error)

	// PurgeRawProfilesOlderThan deletes RawProfile rows whose scraped_at
	// predates the cutoff; used by PurgeOldTelemetry (C9).
	PurgeRawProfilesOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error)
}

// ErrDuplicateProfile signals a race-condition duplicate insert on
// GlobalProfile; the Profile Store counts it as skipped, not fatal.
var ErrDuplicateProfile = errDuplicateProfile{}

type errDuplicateProfile struct{}

func (errDuplicateProfile) Error() string { return "duplicate global profile" }

// CampaignRepository backs the Campaign Selector (C6) and Distributor (C7).
type CampaignRepository interface {
	Create(ctx context.Context, campaign *entity.Campaign) error
	GetByID(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) (*entity.Campaign, error)
	SetTotalAssigned(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, total int) error
	SetDistributed(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, at time.Time) error
	SetSyncStatus(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID, synced bool) error
	PurgeOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error)
}

// AssignmentRepository backs the Distributor (C7), External Sync (C8), and
// Lifecycle Engine (C9).
type AssignmentRepository interface {
	InsertPlaceholders(ctx context.Context, assignments []*entity.Assignment) error

	// PlaceholdersForCampaign returns all queue_index=0 rows for a campaign,
	// the Distributor's fan-out input.
	PlaceholdersForCampaign(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) ([]*entity.Assignment, error)

	// UpdateSlot persists one Assignment's queue_index/position/state after
	// packing.
	UpdateSlot(ctx context.Context, a *entity.Assignment) error

	// PackedForCampaign returns all queue_index>0 rows for a campaign,
	// ordered by (queue_index, position) ascending, the Sync push input.
	PackedForCampaign(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) ([]*entity.Assignment, error)

	// ByTenantProfileQueue locates the single Assignment matching
	// (tenant_id, profile_id, queue_index) for the pull-sync reconciler.
	ByTenantProfileQueue(ctx context.Context, tenantID tenant.ID, profileID string, queueIndex int) (*entity.Assignment, error)

	// UpdateState sets state and bumps updated_at for one Assignment.
	UpdateState(ctx context.Context, tenantID tenant.ID, assignmentID uuid.UUID, state valueobject.AssignmentState, at time.Time) error

	// AgingCandidates returns Assignments eligible for the union of
	// pending->unfollow and followed->unfollow aging transitions: state in
	// {pending, followed} and assigned_at <= cutoff.
	AgingCandidates(ctx context.Context, tenantID tenant.ID, cutoff time.Time) ([]*entity.Assignment, error)

	// CompletedOlderThan returns Assignments with state=completed and
	// updated_at <= cutoff, the DeleteCompletedAfterDelay input.
	CompletedOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) ([]*entity.Assignment, error)

	// Delete removes a single Assignment row, used only after its external
	// record has already been deleted.
	Delete(ctx context.Context, tenantID tenant.ID, assignmentID uuid.UUID) error

	// PurgeOlderThan deletes Assignment rows whose assigned_at predates the
	// cutoff; used by PurgeOldTelemetry (C9).
	PurgeOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error)
}

// JobRepository backs the Job Engine (C5).
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	GetByID(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) (*entity.Job, error)

	// SetProcessing transitions queued -> processing and stamps started_at.
	SetProcessing(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) error

	// IncrementProfilesScraped atomically adds delta to profiles_scraped.
	// Losing rare increments under contention is tolerable: progress is
	// cosmetic (spec.md §4.5).
	IncrementProfilesScraped(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, delta int) error

	// IncrementBatchesCompleted atomically adds 1 to current_batch and
	// returns the post-increment value, the fan-in barrier's counter.
	IncrementBatchesCompleted(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) (int, error)

	// MarkFailed sets status=failed, error_message=cause. It does not touch
	// sibling in-flight batches.
	MarkFailed(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, cause string) error

	// MarkCompleted sets the terminal completed fields atomically.
	MarkCompleted(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, totalScraped, totalFiltered int) error
}

// JobResultRepository backs JobResult storage and pagination.
type JobResultRepository interface {
	InsertBatch(ctx context.Context, results []*entity.JobResult) error
	Page(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, page, limit int) (*entity.JobResultPage, error)
}

// TenantConfigRepository backs queue-count discovery strategy 1 and
// external record-store credential storage (ambient additions, see
// SPEC_FULL.md §3).
type TenantConfigRepository interface {
	GetByTenantID(ctx context.Context, tenantID tenant.ID) (*entity.TenantConfig, error)
	Upsert(ctx context.Context, cfg *entity.TenantConfig) error

	// ListTenantIDs returns every tenant with a config row, the iteration
	// source for periodic cross-tenant sweeps (sync pull, lifecycle aging,
	// telemetry purge). Each sweep still operates one tenant at a time —
	// this is iteration, not the cross-tenant aggregation spec.md excludes.
	ListTenantIDs(ctx context.Context) ([]tenant.ID, error)
}
