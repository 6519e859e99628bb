package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	appservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/application/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/worker"
)

// Handlers holds the Asynq task handlers for the Job Engine's fan-out/
// fan-in batches and the scheduled per-tenant sweeps.
type Handlers struct {
	jobs         *appservice.JobService
	dailyPipe    *appservice.DailyPipelineService
	sync         *appservice.ExternalSyncService
	lifecycle    *appservice.LifecycleService
	tenantConfig repository.TenantConfigRepository
	enqueuer     worker.Enqueuer
	logger       domainservice.Logger
}

// NewHandlers creates a Handlers instance with all required services.
func NewHandlers(
	jobs *appservice.JobService,
	dailyPipe *appservice.DailyPipelineService,
	sync *appservice.ExternalSyncService,
	lifecycle *appservice.LifecycleService,
	tenantConfig repository.TenantConfigRepository,
	enqueuer worker.Enqueuer,
	logger domainservice.Logger,
) *Handlers {
	return &Handlers{
		jobs:         jobs,
		dailyPipe:    dailyPipe,
		sync:         sync,
		lifecycle:    lifecycle,
		tenantConfig: tenantConfig,
		enqueuer:     enqueuer,
		logger:       logger,
	}
}

// HandleScrapeBatch runs one leaf of the Job Engine's fan-out: scrape,
// filter, store, then bump the fan-in counter.
func (h *Handlers) HandleScrapeBatch(ctx context.Context, t *asynq.Task) error {
	var payload worker.ScrapeBatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal scrape batch payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With("task", worker.TypeScrapeBatch, "job_id", payload.JobID, "batch_index", payload.BatchIndex)
	log.Info("processing scrape batch")

	if err := h.jobs.RunScrapeBatch(ctx, payload); err != nil {
		log.Error("scrape batch failed", "error", err)
		h.failJobOnLastAttempt(ctx, payload.TenantID, payload.JobID, err)
		return err
	}
	return nil
}

// HandleScrapeAggregate runs the fan-in barrier consumer once every batch
// for a job has reported in.
func (h *Handlers) HandleScrapeAggregate(ctx context.Context, t *asynq.Task) error {
	var payload worker.ScrapeAggregatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal scrape aggregate payload: %w", asynq.SkipRetry)
	}

	log := h.logger.With("task", worker.TypeScrapeAggregate, "job_id", payload.JobID)
	log.Info("processing scrape aggregate")

	if err := h.jobs.RunScrapeAggregate(ctx, payload); err != nil {
		log.Error("scrape aggregate failed", "error", err)
		h.failJobOnLastAttempt(ctx, payload.TenantID, payload.JobID, err)
		return err
	}
	return nil
}

// failJobOnLastAttempt marks a Job terminally failed once asynq has
// exhausted its retry budget for a batch or aggregate task, so GetJobStatus
// doesn't report "processing" forever for a job asynq has given up on.
func (h *Handlers) failJobOnLastAttempt(ctx context.Context, tenantID, jobIDRaw string, cause error) {
	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried < maxRetry {
		return
	}
	jobID, err := uuid.Parse(jobIDRaw)
	if err != nil {
		return
	}
	if err := h.jobs.FailJob(ctx, tenant.ID(tenantID), jobID, cause.Error()); err != nil {
		h.logger.Error("failed to mark job failed after retry exhaustion", "job_id", jobIDRaw, "error", err)
	}
}

// HandleDailyPipeline runs RunDaily for one tenant.
func (h *Handlers) HandleDailyPipeline(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeTenantSweep(t)
	if err != nil {
		return err
	}

	log := h.logger.With("task", worker.TypeDailyPipeline, "tenant_id", payload.TenantID)
	log.Info("running daily pipeline")

	summary := h.dailyPipe.RunDaily(ctx, tenant.ID(payload.TenantID), time.Now().UTC(), appservice.DefaultProfilesPerQueue)
	log.Info("daily pipeline finished",
		"select_ok", summary.Select.Succeeded,
		"distribute_ok", summary.Distribute.Succeeded,
		"sync_ok", summary.SyncOut.Succeeded,
		"total_selected", summary.TotalSelected,
		"records_synced", summary.RecordsSynced,
	)
	return nil
}

// HandleSyncStatusesIn runs the External Sync pull phase for one tenant.
func (h *Handlers) HandleSyncStatusesIn(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeTenantSweep(t)
	if err != nil {
		return err
	}

	log := h.logger.With("task", worker.TypeSyncStatusesIn, "tenant_id", payload.TenantID)
	synced, err := h.sync.SyncStatusesIn(ctx, tenant.ID(payload.TenantID))
	if err != nil {
		log.Error("sync statuses in failed", "error", err)
		return err
	}
	log.Info("sync statuses in completed", "synced", synced)
	return nil
}

// HandleMarkUnfollowDue runs the aging sweep for one tenant.
func (h *Handlers) HandleMarkUnfollowDue(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeTenantSweep(t)
	if err != nil {
		return err
	}

	log := h.logger.With("task", worker.TypeMarkUnfollowDue, "tenant_id", payload.TenantID)
	count, err := h.lifecycle.MarkUnfollowDue(ctx, tenant.ID(payload.TenantID))
	if err != nil {
		log.Error("mark unfollow due failed", "error", err)
		return err
	}
	log.Info("mark unfollow due completed", "count", count)
	return nil
}

// HandleDeleteCompletedAfterDelay runs the delayed-deletion sweep for one
// tenant.
func (h *Handlers) HandleDeleteCompletedAfterDelay(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeTenantSweep(t)
	if err != nil {
		return err
	}

	log := h.logger.With("task", worker.TypeDeleteCompletedAfterDelay, "tenant_id", payload.TenantID)
	count, err := h.lifecycle.DeleteCompletedAfterDelay(ctx, tenant.ID(payload.TenantID))
	if err != nil {
		log.Error("delete completed after delay failed", "error", err)
		return err
	}
	log.Info("delete completed after delay finished", "count", count)
	return nil
}

// HandlePurgeOldTelemetry runs the telemetry purge for one tenant.
func (h *Handlers) HandlePurgeOldTelemetry(ctx context.Context, t *asynq.Task) error {
	payload, err := decodeTenantSweep(t)
	if err != nil {
		return err
	}

	log := h.logger.With("task", worker.TypePurgeOldTelemetry, "tenant_id", payload.TenantID)
	count, err := h.lifecycle.PurgeOldTelemetry(ctx, tenant.ID(payload.TenantID))
	if err != nil {
		log.Error("purge old telemetry failed", "error", err)
		return err
	}
	log.Info("purge old telemetry finished", "rows_deleted", count)
	return nil
}

// HandleSweepAllTenants fans the pull-sync and lifecycle sweeps out across
// every tenant with a config row, since asynq's scheduler has no native
// "for each tenant" primitive.
func (h *Handlers) HandleSweepAllTenants(ctx context.Context, t *asynq.Task) error {
	ids, err := h.tenantConfig.ListTenantIDs(ctx)
	if err != nil {
		h.logger.Error("failed to list tenants for sweep fan-out", "error", err)
		return err
	}

	log := h.logger.With("task", worker.TypeSweepAllTenants, "tenant_count", len(ids))
	for _, id := range ids {
		tasks := []*asynq.Task{
			worker.NewSyncStatusesInTask(string(id)),
			worker.NewMarkUnfollowDueTask(string(id)),
			worker.NewDeleteCompletedAfterDelayTask(string(id)),
			worker.NewPurgeOldTelemetryTask(string(id)),
		}
		for _, task := range tasks {
			if _, err := h.enqueuer.Enqueue(task); err != nil {
				log.Warn("failed to enqueue per-tenant sweep task", "tenant_id", id, "task_type", task.Type(), "error", err)
			}
		}
	}
	log.Info("sweep fan-out complete")
	return nil
}

// HandleDailySweepAllTenants fans RunDaily out across every tenant with a
// config row, the once-per-day trigger.
func (h *Handlers) HandleDailySweepAllTenants(ctx context.Context, t *asynq.Task) error {
	ids, err := h.tenantConfig.ListTenantIDs(ctx)
	if err != nil {
		h.logger.Error("failed to list tenants for daily sweep fan-out", "error", err)
		return err
	}

	log := h.logger.With("task", worker.TypeDailySweepAllTenants, "tenant_count", len(ids))
	for _, id := range ids {
		task := worker.NewDailyPipelineTask(string(id))
		if _, err := h.enqueuer.Enqueue(task); err != nil {
			log.Warn("failed to enqueue daily pipeline task", "tenant_id", id, "error", err)
		}
	}
	log.Info("daily sweep fan-out complete")
	return nil
}

func decodeTenantSweep(t *asynq.Task) (worker.TenantSweepPayload, error) {
	var payload worker.TenantSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal tenant sweep payload: %w", asynq.SkipRetry)
	}
	return payload, nil
}
