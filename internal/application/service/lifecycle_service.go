package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// Age thresholds for the Lifecycle Engine's time-triggered transitions
// (spec.md §4.9).
const (
	UnfollowAgeThreshold      = 7 * 24 * time.Hour
	CompletedDeleteThreshold  = 24 * time.Hour
	TelemetryRetentionWindow  = 8 * 24 * time.Hour
)

// LifecycleService implements the Lifecycle Engine (C9): aging, delayed
// deletion, and telemetry purge. Grounded on spec.md §4.9 and §9's
// resolution of the MarkUnfollowDue open question: the union of
// pending->unfollow and followed->unfollow is the intended behavior, both
// aged at the same 7-day threshold.
type LifecycleService struct {
	campaigns   repository.CampaignRepository
	assignments repository.AssignmentRepository
	profiles    repository.ProfileRepository
	recordStore domainservice.RecordStore
	resolver    *QueueCountResolver
	logger      domainservice.Logger
	pacer       *rate.Limiter
}

func NewLifecycleService(
	campaigns repository.CampaignRepository,
	assignments repository.AssignmentRepository,
	profiles repository.ProfileRepository,
	recordStore domainservice.RecordStore,
	resolver *QueueCountResolver,
	logger domainservice.Logger,
) *LifecycleService {
	return &LifecycleService{
		campaigns:   campaigns,
		assignments: assignments,
		profiles:    profiles,
		recordStore: recordStore,
		resolver:    resolver,
		logger:      logger,
		pacer:       rate.NewLimiter(rate.Every(SyncPushPaceInterval), 1),
	}
}

// MarkUnfollowDue ages every Assignment with state in {pending, followed}
// whose assigned_at is at least 7 days old into unfollow, pushing the
// change to the external store grouped by queue, rate-limited like the
// push-sync phase. Per-row failures are logged and counted, never abort
// the sweep.
func (s *LifecycleService) MarkUnfollowDue(ctx context.Context, tenantID tenant.ID) (int, error) {
	cutoff := time.Now().UTC().Add(-UnfollowAgeThreshold)
	candidates, err := s.assignments.AgingCandidates(ctx, tenantID, cutoff)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	marked := 0
	byQueue := map[int][]domainservice.RecordStoreRow{}
	for _, a := range candidates {
		if err := s.assignments.UpdateState(ctx, tenantID, a.AssignmentID, valueobject.AssignmentUnfollow, now); err != nil {
			s.logger.Warn("unfollow transition failed, skipping row", "tenant_id", tenantID, "assignment_id", a.AssignmentID, "error", err)
			continue
		}
		marked++
		if a.QueueIndex > 0 {
			byQueue[a.QueueIndex] = append(byQueue[a.QueueIndex], domainservice.RecordStoreRow{
				ProfileID:    a.ProfileID,
				Username:     a.Username,
				DisplayName:  a.DisplayName,
				Position:     a.Position,
				CampaignDate: a.AssignedAt.Format("2006-01-02"),
				State:        valueobject.AssignmentUnfollow,
			})
		}
	}

	tenantBaseID := string(tenantID)
	for queueIndex, rows := range byQueue {
		for _, chunk := range chunkRecordStoreRows(rows, SyncPushChunkSize) {
			if err := s.recordStore.PushChunk(ctx, tenantBaseID, queueIndex, chunk); err != nil {
				s.logger.Warn("external unfollow push failed, internal state already advanced", "tenant_id", tenantID, "queue_index", queueIndex, "error", err)
			}
			_ = s.pacer.Wait(ctx)
		}
	}
	return marked, nil
}

// DeleteCompletedAfterDelay deletes Assignments whose state=completed and
// updated_at is at least 24h old, external record first, then internal. A
// partial external failure must not advance to the internal delete for that
// row.
func (s *LifecycleService) DeleteCompletedAfterDelay(ctx context.Context, tenantID tenant.ID) (int, error) {
	cutoff := time.Now().UTC().Add(-CompletedDeleteThreshold)
	candidates, err := s.assignments.CompletedOlderThan(ctx, tenantID, cutoff)
	if err != nil {
		return 0, err
	}

	byQueue := map[int][]*entityAssignmentRef{}
	for _, a := range candidates {
		byQueue[a.QueueIndex] = append(byQueue[a.QueueIndex], &entityAssignmentRef{AssignmentID: a.AssignmentID, ProfileID: a.ProfileID})
	}

	deleted := 0
	for queueIndex, refs := range byQueue {
		for _, chunk := range chunkAssignmentRefs(refs, SyncPushChunkSize) {
			if queueIndex > 0 {
				ids := make([]string, len(chunk))
				for i, r := range chunk {
					ids[i] = r.ProfileID
				}
				if err := s.recordStore.DeleteRows(ctx, string(tenantID), queueIndex, ids); err != nil {
					s.logger.Warn("external delete chunk failed, rows retained for a later sweep", "tenant_id", tenantID, "queue_index", queueIndex, "error", err)
					continue
				}
			}
			for _, r := range chunk {
				if err := s.assignments.Delete(ctx, tenantID, r.AssignmentID); err != nil {
					s.logger.Warn("internal delete failed after external delete succeeded", "tenant_id", tenantID, "assignment_id", r.AssignmentID, "error", err)
					continue
				}
				deleted++
			}
		}
	}
	return deleted, nil
}

// entityAssignmentRef is the minimal identity pair DeleteCompletedAfterDelay
// needs once an Assignment has been grouped by queue for chunked deletion.
type entityAssignmentRef struct {
	AssignmentID uuid.UUID
	ProfileID    string
}

func chunkAssignmentRefs(items []*entityAssignmentRef, size int) [][]*entityAssignmentRef {
	var chunks [][]*entityAssignmentRef
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

// PurgeOldTelemetry deletes RawProfile, Campaign, and Assignment rows older
// than the 8-day retention window, in that order. Never touches
// GlobalProfile.
func (s *LifecycleService) PurgeOldTelemetry(ctx context.Context, tenantID tenant.ID) (int64, error) {
	cutoff := time.Now().UTC().Add(-TelemetryRetentionWindow)

	var total int64
	if n, err := s.profiles.PurgeRawProfilesOlderThan(ctx, tenantID, cutoff); err != nil {
		s.logger.Warn("raw profile purge failed", "tenant_id", tenantID, "error", err)
	} else {
		total += n
	}
	if n, err := s.campaigns.PurgeOlderThan(ctx, tenantID, cutoff); err != nil {
		s.logger.Warn("campaign purge failed", "tenant_id", tenantID, "error", err)
	} else {
		total += n
	}
	if n, err := s.assignments.PurgeOlderThan(ctx, tenantID, cutoff); err != nil {
		s.logger.Warn("assignment purge failed", "tenant_id", tenantID, "error", err)
	} else {
		total += n
	}
	return total, nil
}
