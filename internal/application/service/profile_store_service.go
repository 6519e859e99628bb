package service

import (
	"context"
	"time"

	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"golang.org/x/time/rate"
)

// Design parameters for the bulk-safe ingestion algorithm (spec.md §4.2).
const (
	ExistenceProbeChunkSize = 5000
	BulkInsertChunkSize     = 1000
	IngestionPaceInterval   = 100 * time.Millisecond
)

// ProfileStoreService implements C2: durable, tenant-scoped storage of raw
// scrape events and a deduplicated global pool, with bulk-safe ingestion.
// Grounded on utils/batch_processor.py's chunked-existence-check / batched
// insert / per-row-fallback algorithm.
type ProfileStoreService struct {
	profiles repository.ProfileRepository
	logger   domainservice.Logger
	pacer    *rate.Limiter
}

func NewProfileStoreService(profiles repository.ProfileRepository, logger domainservice.Logger) *ProfileStoreService {
	return &ProfileStoreService{
		profiles: profiles,
		logger:   logger,
		// One permit every IngestionPaceInterval: the between-batches sleep
		// from spec.md §4.2 step 6, centralized via x/time/rate rather than
		// a raw time.Sleep loop so C3/C8 can reuse the same pacing idiom.
		pacer: rate.NewLimiter(rate.Every(IngestionPaceInterval), 1),
	}
}

// IngestResult is the IngestBatch output shape.
type IngestResult struct {
	InsertedRaw int
	AddedGlobal int
	Skipped     int
}

// IngestBatch runs the six-step bulk-safe ingestion algorithm from
// spec.md §4.2.
func (s *ProfileStoreService) IngestBatch(ctx context.Context, tenantID tenant.ID, profiles []*entity.CanonicalProfile) (*IngestResult, error) {
	log := s.logger.With("tenant_id", tenantID, "operation", "IngestBatch")

	// Step 1: validate, drop inputs missing id or username.
	valid := make([]*entity.CanonicalProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.ID == "" || p.Username == "" {
			continue
		}
		valid = append(valid, p)
	}

	result := &IngestResult{}
	if len(valid) == 0 {
		return result, nil
	}

	// Step 2: existence probe in chunks of at most ExistenceProbeChunkSize.
	present := make(map[string]struct{}, len(valid))
	ids := make([]string, len(valid))
	for i, p := range valid {
		ids[i] = p.ID
	}
	for _, chunk := range chunkStrings(ids, ExistenceProbeChunkSize) {
		existing, err := s.profiles.ExistingProfileIDs(ctx, tenantID, chunk)
		if err != nil {
			return nil, domainerrors.Wrap(domainerrors.KindTransient, "ExistenceProbeFailed", "failed probing existing profile ids", err)
		}
		for id := range existing {
			present[id] = struct{}{}
		}
	}

	// Step 3: partition into raw_records (all) and new_global_records
	// (those not already present).
	now := time.Now().UTC()
	rawRecords := make([]*entity.RawProfile, 0, len(valid))
	newGlobalRecords := make([]*entity.GlobalProfile, 0, len(valid))
	for _, p := range valid {
		rawRecords = append(rawRecords, &entity.RawProfile{
			ProfileID:   p.ID,
			Username:    p.Username,
			DisplayName: p.DisplayName,
			ScrapedAt:   now,
			TenantID:    string(tenantID),
		})
		if _, ok := present[p.ID]; !ok {
			newGlobalRecords = append(newGlobalRecords, &entity.GlobalProfile{
				ProfileID:   p.ID,
				Username:    p.Username,
				DisplayName: p.DisplayName,
				Used:        false,
				CreatedAt:   now,
				TenantID:    string(tenantID),
			})
		} else {
			result.Skipped++
		}
	}

	// Step 4: insert RawProfiles in batches, per-row fallback on failure.
	for _, batch := range chunkRawProfiles(rawRecords, BulkInsertChunkSize) {
		if err := s.profiles.InsertRawProfiles(ctx, tenantID, batch); err != nil {
			log.Warn("raw profile batch insert failed, falling back to per-row", "error", err, "batch_size", len(batch))
			for _, row := range batch {
				if rowErr := s.profiles.InsertRawProfile(ctx, row); rowErr != nil {
					log.Error("raw profile row insert failed", "error", rowErr, "profile_id", row.ProfileID)
					continue
				}
				result.InsertedRaw++
			}
		} else {
			result.InsertedRaw += len(batch)
		}
		_ = s.pacer.Wait(ctx)
	}

	// Step 5: insert new GlobalProfiles in batches, same fallback policy.
	// A duplicate on race is counted as skipped, not fatal.
	for _, batch := range chunkGlobalProfiles(newGlobalRecords, BulkInsertChunkSize) {
		if err := s.profiles.InsertGlobalProfiles(ctx, tenantID, batch); err != nil {
			log.Warn("global profile batch insert failed, falling back to per-row", "error", err, "batch_size", len(batch))
			for _, row := range batch {
				if rowErr := s.profiles.InsertGlobalProfile(ctx, row); rowErr != nil {
					if rowErr == repository.ErrDuplicateProfile {
						result.Skipped++
						continue
					}
					log.Error("global profile row insert failed", "error", rowErr, "profile_id", row.ProfileID)
					continue
				}
				result.AddedGlobal++
			}
		} else {
			result.AddedGlobal += len(batch)
		}
		_ = s.pacer.Wait(ctx)
	}

	return result, nil
}

// SelectUnused returns up to limit unused GlobalProfile rows.
func (s *ProfileStoreService) SelectUnused(ctx context.Context, tenantID tenant.ID, limit int) ([]*entity.GlobalProfile, error) {
	return s.profiles.SelectUnused(ctx, tenantID, limit)
}

// MarkUsed flips used=false->true on the given ids.
func (s *ProfileStoreService) MarkUsed(ctx context.Context, tenantID tenant.ID, profileIDs []string) (int, error) {
	return s.profiles.MarkUsed(ctx, tenantID, profileIDs)
}

func chunkStrings(items []string, size int) [][]string {
	var chunks [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func chunkRawProfiles(items []*entity.RawProfile, size int) [][]*entity.RawProfile {
	var chunks [][]*entity.RawProfile
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}

func chunkGlobalProfiles(items []*entity.GlobalProfile, size int) [][]*entity.GlobalProfile {
	var chunks [][]*entity.GlobalProfile
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
