package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"golang.org/x/time/rate"
)

// Design parameters for the External Sync record-store push/pull pacing
// (spec.md §4.8, §6).
const (
	SyncPushChunkSize    = 10
	SyncPushPaceInterval = 200 * time.Millisecond
	SyncPushMaxAttempts  = 3
)

// ExternalSyncService implements External Sync (C8): push phase mirrors
// distributed assignments into the record-store, pull phase reconciles
// operator-entered statuses back in. Grounded on clear_airtable_data.py's
// batch_size=10 / 0.2s pacing / retry shape and spec.md §9's resolution of
// the SyncOut idempotency open question: clear-before-push.
type ExternalSyncService struct {
	campaigns   repository.CampaignRepository
	assignments repository.AssignmentRepository
	recordStore domainservice.RecordStore
	resolver    *QueueCountResolver
	logger      domainservice.Logger
	pacer       *rate.Limiter
}

func NewExternalSyncService(
	campaigns repository.CampaignRepository,
	assignments repository.AssignmentRepository,
	recordStore domainservice.RecordStore,
	resolver *QueueCountResolver,
	logger domainservice.Logger,
) *ExternalSyncService {
	return &ExternalSyncService{
		campaigns:   campaigns,
		assignments: assignments,
		recordStore: recordStore,
		resolver:    resolver,
		logger:      logger,
		pacer:       rate.NewLimiter(rate.Every(SyncPushPaceInterval), 1),
	}
}

// SyncOutResult is the SyncCampaignOut output shape.
type SyncOutResult struct {
	TablesSynced  int
	RecordsSynced int
	Status        bool
}

// SyncCampaignOut pushes one campaign's packed assignments to the external
// record-store, grouped by queue, clearing each table first.
func (s *ExternalSyncService) SyncCampaignOut(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) (*SyncOutResult, error) {
	campaign, err := s.campaigns.GetByID(ctx, tenantID, campaignID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "CampaignLookupFailed", "failed to load campaign", err)
	}
	if campaign == nil {
		return nil, domainerrors.ErrCampaignNotFound
	}
	if campaign.DistributedAt == nil {
		return nil, domainerrors.ErrNotDistributed
	}

	packed, err := s.assignments.PackedForCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "PackedFetchFailed", "failed to fetch packed assignments", err)
	}

	byQueue := map[int][]domainservice.RecordStoreRow{}
	var queues []int
	for _, a := range packed {
		if _, seen := byQueue[a.QueueIndex]; !seen {
			queues = append(queues, a.QueueIndex)
		}
		byQueue[a.QueueIndex] = append(byQueue[a.QueueIndex], domainservice.RecordStoreRow{
			ProfileID:    a.ProfileID,
			Username:     a.Username,
			DisplayName:  a.DisplayName,
			Position:     a.Position,
			CampaignDate: campaign.CampaignDate.Format("2006-01-02"),
			State:        a.State,
		})
	}
	sort.Ints(queues)

	tenantBaseID := string(tenantID)
	tablesSynced, recordsSynced := 0, 0
	for _, q := range queues {
		rows := byQueue[q]
		if err := s.recordStore.ClearTable(ctx, tenantBaseID, q); err != nil {
			s.logger.Error("clear-before-push failed, skipping queue", "tenant_id", tenantID, "queue_index", q, "error", err)
			continue
		}

		fullyPushed := true
		for _, chunk := range chunkRecordStoreRows(rows, SyncPushChunkSize) {
			if err := s.pushChunkWithBackoff(ctx, tenantBaseID, q, chunk); err != nil {
				s.logger.Error("push chunk exhausted retries, skipping remainder of queue", "tenant_id", tenantID, "queue_index", q, "error", err)
				fullyPushed = false
				break
			}
			recordsSynced += len(chunk)
			_ = s.pacer.Wait(ctx)
		}
		if fullyPushed {
			tablesSynced++
		}
	}

	status := tablesSynced == len(queues) && recordsSynced > 0
	if err := s.campaigns.SetSyncStatus(ctx, tenantID, campaignID, status); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "CampaignUpdateFailed", "failed to update campaign sync status", err)
	}

	return &SyncOutResult{TablesSynced: tablesSynced, RecordsSynced: recordsSynced, Status: status}, nil
}

// pushChunkWithBackoff retries a single chunk push up to SyncPushMaxAttempts
// times with 1s/2s/4s exponential backoff.
func (s *ExternalSyncService) pushChunkWithBackoff(ctx context.Context, tenantBaseID string, queueIndex int, chunk []domainservice.RecordStoreRow) error {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= SyncPushMaxAttempts; attempt++ {
		err := s.recordStore.PushChunk(ctx, tenantBaseID, queueIndex, chunk)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < SyncPushMaxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return lastErr
}

// SyncStatusesIn runs the pull phase: fetch every queue table, reconcile any
// externally-edited state back into the matching Assignment. Idempotent.
func (s *ExternalSyncService) SyncStatusesIn(ctx context.Context, tenantID tenant.ID) (int, error) {
	n, err := s.resolver.Resolve(ctx, tenantID)
	if err != nil {
		return 0, domainerrors.Wrap(domainerrors.KindTransient, "QueueCountResolveFailed", "failed to resolve queue count", err)
	}

	tenantBaseID := string(tenantID)
	synced := 0
	now := time.Now().UTC()
	for q := 1; q <= n; q++ {
		rows, err := s.recordStore.PullTable(ctx, tenantBaseID, q)
		if err != nil {
			s.logger.Warn("pull table failed, continuing with remaining queues", "tenant_id", tenantID, "queue_index", q, "error", err)
			continue
		}
		for _, row := range rows {
			assignment, err := s.assignments.ByTenantProfileQueue(ctx, tenantID, row.ProfileID, q)
			if err != nil {
				s.logger.Warn("assignment lookup failed during pull sync", "tenant_id", tenantID, "profile_id", row.ProfileID, "error", err)
				continue
			}
			if assignment == nil || assignment.State == row.State {
				continue
			}
			if err := s.assignments.UpdateState(ctx, tenantID, assignment.AssignmentID, row.State, now); err != nil {
				s.logger.Warn("assignment state update failed during pull sync", "tenant_id", tenantID, "assignment_id", assignment.AssignmentID, "error", err)
				continue
			}
			synced++
		}
	}
	return synced, nil
}

// CreateExternalBase provisions numQueues WorkQueue_NN tables for a fresh
// tenant base. The provisioning mechanics themselves are an external
// collaborator (spec.md §1); this is a thin pass-through that surfaces the
// record-store's own DuplicateBaseId/AuthFailure classification.
func (s *ExternalSyncService) CreateExternalBase(ctx context.Context, tenantID tenant.ID, numQueues int) (created, skipped, failed int, err error) {
	return s.recordStore.CreateBase(ctx, string(tenantID), numQueues)
}

// VerifyExternalBase checks that exactly numQueues WorkQueue_NN tables
// exist for the tenant's base.
func (s *ExternalSyncService) VerifyExternalBase(ctx context.Context, tenantID tenant.ID, numQueues int) (valid bool, missing, extra []string, err error) {
	return s.recordStore.VerifyBase(ctx, string(tenantID), numQueues)
}

func chunkRecordStoreRows(items []domainservice.RecordStoreRow, size int) [][]domainservice.RecordStoreRow {
	var chunks [][]domainservice.RecordStoreRow
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
