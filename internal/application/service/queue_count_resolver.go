package service

import (
	"context"

	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// Design parameters for queue-count discovery (spec.md §6).
const (
	// DefaultQueueCount (N) is the process-level fallback when neither a
	// tenant-config override nor the external store's own schema yields a
	// count.
	DefaultQueueCount = 80
	// DefaultProfilesPerQueue (M) is overridable per request.
	DefaultProfilesPerQueue = 180
)

// QueueCountResolver implements the three-tier N-discovery strategy shared
// by the Campaign Selector (C6), Distributor (C7), and External Sync (C8).
type QueueCountResolver struct {
	tenantConfigs repository.TenantConfigRepository
	recordStore   domainservice.RecordStore
	logger        domainservice.Logger
}

func NewQueueCountResolver(tenantConfigs repository.TenantConfigRepository, recordStore domainservice.RecordStore, logger domainservice.Logger) *QueueCountResolver {
	return &QueueCountResolver{tenantConfigs: tenantConfigs, recordStore: recordStore, logger: logger}
}

// Resolve determines N in order: (1) tenant-config num_vas override, (2) a
// count of WorkQueue_NN tables already present in the tenant's external
// base, (3) the process-level default.
func (r *QueueCountResolver) Resolve(ctx context.Context, tenantID tenant.ID) (int, error) {
	cfg, err := r.tenantConfigs.GetByTenantID(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if cfg != nil && cfg.NumVAs != nil && *cfg.NumVAs > 0 {
		return *cfg.NumVAs, nil
	}

	if r.recordStore != nil {
		n, err := r.recordStore.CountQueueTables(ctx, string(tenantID))
		if err != nil {
			r.logger.Warn("queue table count probe failed, falling back to default", "tenant_id", tenantID, "error", err)
		} else if n > 0 {
			return n, nil
		}
	}

	return DefaultQueueCount, nil
}
