package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

// DailyPipelineService implements RunDaily: the orchestrator that chains
// DailySelect -> Distribute -> SyncCampaignOut for one tenant. Grounded on
// spec.md §7's requirement that a structured summary carry a per-step
// success flag, and that a step failure not abort subsequent steps unless
// the next step logically depends on the failed one (here it always does:
// each step's input is the prior step's output).
type DailyPipelineService struct {
	selector *CampaignSelectorService
	distrib  *DistributorService
	sync     *ExternalSyncService
	logger   domainservice.Logger
}

func NewDailyPipelineService(selector *CampaignSelectorService, distrib *DistributorService, sync *ExternalSyncService, logger domainservice.Logger) *DailyPipelineService {
	return &DailyPipelineService{selector: selector, distrib: distrib, sync: sync, logger: logger}
}

// StepOutcome is one stage's structured result within a PipelineSummary.
type StepOutcome struct {
	Succeeded bool
	Error     string
}

// PipelineSummary is the RunDaily output shape.
type PipelineSummary struct {
	CampaignID    uuid.UUID
	Select        StepOutcome
	Distribute    StepOutcome
	SyncOut       StepOutcome
	TotalSelected int
	TablesUsed    int
	RecordsSynced int
}

// RunDaily chains DailySelect, Distribute, and SyncCampaignOut for one
// tenant. Each step only runs if the previous one succeeded, since its
// input is the previous step's output; a failure is recorded in the
// summary rather than returned as a top-level error, so the caller always
// gets a complete picture of how far the pipeline advanced.
func (s *DailyPipelineService) RunDaily(ctx context.Context, tenantID tenant.ID, campaignDate time.Time, profilesPerQueue int) *PipelineSummary {
	summary := &PipelineSummary{}
	log := s.logger.With("tenant_id", tenantID, "operation", "RunDaily")

	selectResult, err := s.selector.DailySelect(ctx, tenantID, campaignDate, profilesPerQueue)
	if err != nil {
		log.Error("daily select step failed", "error", err)
		summary.Select = StepOutcome{Succeeded: false, Error: err.Error()}
		return summary
	}
	summary.Select = StepOutcome{Succeeded: true}
	summary.CampaignID = selectResult.CampaignID
	summary.TotalSelected = selectResult.TotalSelected

	distResult, err := s.distrib.Distribute(ctx, tenantID, selectResult.CampaignID, profilesPerQueue)
	if err != nil {
		log.Error("distribute step failed", "error", err, "campaign_id", selectResult.CampaignID)
		summary.Distribute = StepOutcome{Succeeded: false, Error: err.Error()}
		return summary
	}
	summary.Distribute = StepOutcome{Succeeded: true}
	summary.TablesUsed = distResult.TablesUsed

	syncResult, err := s.sync.SyncCampaignOut(ctx, tenantID, selectResult.CampaignID)
	if err != nil {
		log.Error("sync out step failed", "error", err, "campaign_id", selectResult.CampaignID)
		summary.SyncOut = StepOutcome{Succeeded: false, Error: err.Error()}
		return summary
	}
	summary.SyncOut = StepOutcome{Succeeded: syncResult.Status}
	summary.RecordsSynced = syncResult.RecordsSynced

	return summary
}
