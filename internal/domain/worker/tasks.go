// Package worker declares the Asynq task type constants, queue names, and
// payload shapes shared between the enqueue side (application services)
// and the handler side (internal/infrastructure/worker). This is the Go
// analogue of the original's Celery task graph (celery_config.py, tasks.py)
// and the direct model for the Job Engine's (C5) fan-out/fan-in barrier.
package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants.
const (
	// TypeScrapeBatch is one of the K parallel batch tasks in a scrape job's
	// fan-out.
	TypeScrapeBatch = "scrape:batch"
	// TypeScrapeAggregate is the fan-in barrier consumer: it runs once all
	// K batches for a job have completed.
	TypeScrapeAggregate = "scrape:aggregate"

	// TypeDailyPipeline runs RunDaily end-to-end for one tenant (scheduled).
	TypeDailyPipeline = "pipeline:daily"
	// TypeSyncStatusesIn runs the pull phase of External Sync for one tenant
	// (scheduled).
	TypeSyncStatusesIn = "sync:statuses:in"
	// TypeMarkUnfollowDue runs the aging sweep for one tenant (scheduled).
	TypeMarkUnfollowDue = "lifecycle:mark_unfollow_due"
	// TypeDeleteCompletedAfterDelay runs the delayed-deletion sweep for one
	// tenant (scheduled).
	TypeDeleteCompletedAfterDelay = "lifecycle:delete_completed"
	// TypePurgeOldTelemetry runs the telemetry purge for one tenant
	// (scheduled).
	TypePurgeOldTelemetry = "lifecycle:purge_old_telemetry"
	// TypeSweepAllTenants fans the pull-sync and lifecycle sweeps above out
	// across every tenant with a config row, on the frequent (~15m)
	// schedule spec.md §7 describes for periodic reconciliation.
	TypeSweepAllTenants = "lifecycle:sweep_all_tenants"
	// TypeDailySweepAllTenants fans RunDaily out across every tenant with a
	// config row, once per day, per spec.md §1's "once per day selects a
	// fresh working set" framing.
	TypeDailySweepAllTenants = "pipeline:daily_sweep_all_tenants"
)

// Queue names for priority handling, mirroring the original's
// default/scraping/processing Celery queues.
const (
	QueueScraping   = "scraping"   // batch scrape tasks
	QueueProcessing = "processing" // aggregation, sync, lifecycle sweeps
	QueueDefault    = "default"
)

// Task execution limits, ported from celery_config.py's
// task_time_limit/task_soft_time_limit/worker_max_tasks_per_child.
const (
	HardTimeLimit        = 2 * time.Hour
	SoftTimeLimit        = 1*time.Hour + 55*time.Minute
	WorkerRecycleTasks   = 50
	AggregationMaxRetry  = 1
	ScrapeBatchMaxRetry  = 3
)

// ScrapeBatchPayload is one batch task's input.
type ScrapeBatchPayload struct {
	JobID         string   `json:"job_id"`
	TenantID      string   `json:"tenant_id"`
	Platform      string   `json:"platform"`
	Accounts      []string `json:"accounts"`
	MaxPerAccount int      `json:"max_per_account"`
	TargetGender  string   `json:"target_gender"`
	BatchIndex    int      `json:"batch_index"`
	TotalBatches  int      `json:"total_batches"`
}

// ScrapeAggregatePayload is the barrier task's input: just enough to look
// the job back up, since all batch output already landed in the backing
// store (per spec.md §5: the barrier receives data through the persistent
// store, not shared memory).
type ScrapeAggregatePayload struct {
	JobID    string `json:"job_id"`
	TenantID string `json:"tenant_id"`
}

// TenantSweepPayload is the shared input shape for every scheduled
// per-tenant lifecycle/sync task.
type TenantSweepPayload struct {
	TenantID string `json:"tenant_id"`
}

// Enqueuer abstracts *asynq.Client's Enqueue method so application services
// depend on an interface they can fake in tests, not a concrete client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func marshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Payload structs here are all simple value types; a marshal
		// failure means a programming error, not a runtime condition.
		panic(err)
	}
	return b
}

// NewScrapeBatchTask builds one fan-out batch task.
func NewScrapeBatchTask(p ScrapeBatchPayload) *asynq.Task {
	return asynq.NewTask(TypeScrapeBatch, marshal(p),
		asynq.Queue(QueueScraping),
		asynq.MaxRetry(ScrapeBatchMaxRetry),
		asynq.Timeout(HardTimeLimit),
	)
}

// NewScrapeAggregateTask builds the fan-in barrier task.
func NewScrapeAggregateTask(p ScrapeAggregatePayload) *asynq.Task {
	return asynq.NewTask(TypeScrapeAggregate, marshal(p),
		asynq.Queue(QueueProcessing),
		asynq.MaxRetry(AggregationMaxRetry),
	)
}

// NewDailyPipelineTask builds a RunDaily task for one tenant.
func NewDailyPipelineTask(tenantID string) *asynq.Task {
	return asynq.NewTask(TypeDailyPipeline, marshal(TenantSweepPayload{TenantID: tenantID}),
		asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}

// NewSyncStatusesInTask builds a SyncStatusesIn task for one tenant.
func NewSyncStatusesInTask(tenantID string) *asynq.Task {
	return asynq.NewTask(TypeSyncStatusesIn, marshal(TenantSweepPayload{TenantID: tenantID}),
		asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}

// NewMarkUnfollowDueTask builds a MarkUnfollowDue task for one tenant.
func NewMarkUnfollowDueTask(tenantID string) *asynq.Task {
	return asynq.NewTask(TypeMarkUnfollowDue, marshal(TenantSweepPayload{TenantID: tenantID}),
		asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}

// NewDeleteCompletedAfterDelayTask builds a DeleteCompletedAfterDelay task
// for one tenant.
func NewDeleteCompletedAfterDelayTask(tenantID string) *asynq.Task {
	return asynq.NewTask(TypeDeleteCompletedAfterDelay, marshal(TenantSweepPayload{TenantID: tenantID}),
		asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}

// NewPurgeOldTelemetryTask builds a PurgeOldTelemetry task for one tenant.
func NewPurgeOldTelemetryTask(tenantID string) *asynq.Task {
	return asynq.NewTask(TypePurgeOldTelemetry, marshal(TenantSweepPayload{TenantID: tenantID}),
		asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}

// NewSweepAllTenantsTask builds the scheduler-driven pull-sync/lifecycle
// fan-out trigger (no payload needed: the handler lists tenants itself).
func NewSweepAllTenantsTask() *asynq.Task {
	return asynq.NewTask(TypeSweepAllTenants, nil, asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}

// NewDailySweepAllTenantsTask builds the scheduler-driven RunDaily fan-out
// trigger.
func NewDailySweepAllTenantsTask() *asynq.Task {
	return asynq.NewTask(TypeDailySweepAllTenants, nil, asynq.Queue(QueueProcessing), asynq.MaxRetry(1))
}
