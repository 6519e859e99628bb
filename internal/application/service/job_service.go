package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/genderfilter"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/worker"
)

// Design parameters for job submission and the fan-out/fan-in barrier
// (spec.md §4.5).
const (
	// MaxAccountsPerBatch bounds the fan-out width of one SubmitScrape call.
	MaxAccountsPerBatch = 50
	// DefaultPerAccount is per_account when total_scrape_count is omitted.
	DefaultPerAccount = 5
	// JobResultInsertChunkSize bounds one InsertBatch call.
	JobResultInsertChunkSize = 1000
)

// JobService implements the Job Engine (C5): the hardest component in this
// system, per spec.md's own component table. It owns job submission, the
// per-batch scrape/filter/store pipeline, and the fan-in barrier that
// triggers aggregation once every batch has reported in. Grounded on
// tasks.py's scrape_followers/detect_gender/filter_by_gender call chain and
// on celery_config.py's chord fan-out shape, reimplemented as a persistent
// counter since asynq has no native chord primitive (spec.md §5).
type JobService struct {
	jobs        repository.JobRepository
	jobResults  repository.JobResultRepository
	profiles    *ProfileStoreService
	enqueuer    worker.Enqueuer
	scraper     domainservice.ScrapeAdapter
	classifier  genderfilter.Classifier
	logger      domainservice.Logger
}

func NewJobService(
	jobs repository.JobRepository,
	jobResults repository.JobResultRepository,
	profiles *ProfileStoreService,
	enqueuer worker.Enqueuer,
	scraper domainservice.ScrapeAdapter,
	classifier genderfilter.Classifier,
	logger domainservice.Logger,
) *JobService {
	if classifier == nil {
		classifier = genderfilter.DefaultClassifier()
	}
	return &JobService{
		jobs:       jobs,
		jobResults: jobResults,
		profiles:   profiles,
		enqueuer:   enqueuer,
		scraper:    scraper,
		classifier: classifier,
		logger:     logger,
	}
}

// SubmitScrape validates a scrape request, persists the Job row, and fans it
// out into batch tasks plus one aggregate task.
func (s *JobService) SubmitScrape(ctx context.Context, tenantID tenant.ID, platform valueobject.Platform, accounts []string, totalScrapeCount *int, targetGender valueobject.Gender) (*entity.Job, error) {
	if len(accounts) == 0 {
		return nil, domainerrors.ErrMissingAccounts
	}

	perAccount := DefaultPerAccount
	if totalScrapeCount != nil {
		perAccount = *totalScrapeCount / len(accounts)
	}
	if perAccount < 1 {
		return nil, domainerrors.ErrBadCount
	}

	batches := chunkStrings(accounts, MaxAccountsPerBatch)

	job := &entity.Job{
		JobID:              uuid.New(),
		TenantID:           string(tenantID),
		Status:             valueobject.JobStatusQueued,
		Accounts:           accounts,
		TargetGender:       targetGender,
		MaxCountPerAccount: perAccount,
		TotalBatches:       len(batches),
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "JobCreateFailed", "failed to persist job", err)
	}

	for i, batch := range batches {
		task := worker.NewScrapeBatchTask(worker.ScrapeBatchPayload{
			JobID:         job.JobID.String(),
			TenantID:      string(tenantID),
			Platform:      platform.String(),
			Accounts:      batch,
			MaxPerAccount: perAccount,
			TargetGender:  targetGender.String(),
			BatchIndex:    i,
			TotalBatches:  len(batches),
		})
		if _, err := s.enqueuer.Enqueue(task); err != nil {
			return nil, domainerrors.Wrap(domainerrors.KindTransient, "EnqueueFailed", "failed to enqueue scrape batch", err)
		}
	}
	aggregateTask := worker.NewScrapeAggregateTask(worker.ScrapeAggregatePayload{
		JobID:    job.JobID.String(),
		TenantID: string(tenantID),
	})
	if _, err := s.enqueuer.Enqueue(aggregateTask); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "EnqueueFailed", "failed to enqueue scrape aggregate", err)
	}

	if err := s.jobs.SetProcessing(ctx, tenantID, job.JobID); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "JobTransitionFailed", "failed to mark job processing", err)
	}
	job.Status = valueobject.JobStatusProcessing

	return job, nil
}

// RunScrapeBatch is one fan-out leaf: scrape, classify, store into the
// profile pool unfiltered, write gender-filtered JobResult rows, then bump
// the fan-in counter. It enqueues the aggregate task itself the moment the
// counter reaches total_batches — there is no separate coordinator.
func (s *JobService) RunScrapeBatch(ctx context.Context, payload worker.ScrapeBatchPayload) error {
	tenantID := tenant.ID(payload.TenantID)
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.KindValidation, "BadJobID", "malformed job id in batch payload", err)
	}
	platform, err := valueobject.ParsePlatform(payload.Platform)
	if err != nil {
		return domainerrors.ErrUnknownPlatform
	}

	scraped, err := s.scraper.Scrape(ctx, platform, payload.Accounts, payload.MaxPerAccount)
	if err != nil {
		return domainerrors.Wrap(domainerrors.KindTransient, "ScrapeFailed", "upstream scrape adapter failed", err)
	}

	log := s.logger.With("tenant_id", tenantID, "job_id", jobID, "batch_index", payload.BatchIndex)

	all := make([]*entity.CanonicalProfile, 0, len(scraped))
	genders := make(map[string]valueobject.Gender, len(scraped))
	for username, profile := range scraped {
		all = append(all, profile)
		genders[username] = genderfilter.Classify(s.classifier, profile.Username, profile.DisplayName)
	}

	if s.profiles != nil {
		if _, err := s.profiles.IngestBatch(ctx, tenantID, all); err != nil {
			log.Warn("profile pool ingestion failed for batch, continuing with job results", "error", err)
		}
	}

	target, hasTarget := valueobject.ParseGender(payload.TargetGender)
	kept := genders
	if hasTarget {
		kept = genderfilter.FilterInclusive(genders, target)
	}

	now := time.Now().UTC()
	results := make([]*entity.JobResult, 0, len(kept))
	for username, profile := range scraped {
		if _, ok := kept[username]; !ok {
			continue
		}
		results = append(results, &entity.JobResult{
			JobID:       jobID,
			ProfileID:   profile.ID,
			Username:    profile.Username,
			DisplayName: profile.DisplayName,
			CreatedAt:   now,
			TenantID:    payload.TenantID,
		})
	}
	for _, chunk := range chunkJobResults(results, JobResultInsertChunkSize) {
		if err := s.jobResults.InsertBatch(ctx, chunk); err != nil {
			return domainerrors.Wrap(domainerrors.KindTransient, "JobResultInsertFailed", "failed to persist job results batch", err)
		}
	}

	if err := s.jobs.IncrementProfilesScraped(ctx, tenantID, jobID, len(all)); err != nil {
		log.Warn("profiles_scraped increment failed, progress will under-report", "error", err)
	}

	completed, err := s.jobs.IncrementBatchesCompleted(ctx, tenantID, jobID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.KindTransient, "BarrierIncrementFailed", "failed to increment batch barrier", err)
	}
	if completed >= payload.TotalBatches {
		aggTask := worker.NewScrapeAggregateTask(worker.ScrapeAggregatePayload{JobID: payload.JobID, TenantID: payload.TenantID})
		if _, err := s.enqueuer.Enqueue(aggTask); err != nil {
			log.Error("failed to enqueue aggregate task after last batch", "error", err)
			return domainerrors.Wrap(domainerrors.KindTransient, "EnqueueFailed", "failed to enqueue aggregate task", err)
		}
	}
	return nil
}

// RunScrapeAggregate is the fan-in barrier consumer. It acts only once
// current_batch has reached total_batches; an aggregate task that runs
// earlier (SubmitScrape enqueues one up front) returns without changing the
// job. By then every batch's output already landed in the backing store
// (job results and the profile pool); it only has to read the totals back
// and flip the job to its terminal state.
func (s *JobService) RunScrapeAggregate(ctx context.Context, payload worker.ScrapeAggregatePayload) error {
	tenantID := tenant.ID(payload.TenantID)
	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.KindValidation, "BadJobID", "malformed job id in aggregate payload", err)
	}

	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return domainerrors.Wrap(domainerrors.KindTransient, "JobLookupFailed", "failed to load job for aggregation", err)
	}
	if job == nil {
		return domainerrors.ErrJobNotFound
	}
	if job.Status.Terminal() {
		return nil
	}
	if job.CurrentBatch < job.TotalBatches {
		return nil
	}

	page, err := s.jobResults.Page(ctx, tenantID, jobID, 1, 1)
	if err != nil {
		return domainerrors.Wrap(domainerrors.KindTransient, "JobResultCountFailed", "failed to count job results", err)
	}

	if err := s.jobs.MarkCompleted(ctx, tenantID, jobID, job.ProfilesScraped, page.Total); err != nil {
		return domainerrors.Wrap(domainerrors.KindTransient, "JobCompleteFailed", "failed to mark job completed", err)
	}
	return nil
}

// FailJob marks a job failed with cause, used by the worker layer when
// asynq exhausts retries on a batch or aggregate task.
func (s *JobService) FailJob(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, cause string) error {
	return s.jobs.MarkFailed(ctx, tenantID, jobID, cause)
}

// GetJobStatus returns a job with Progress computed from current_batch and
// total_batches (100 once terminal), overriding the stored progress column,
// which only MarkCompleted sets.
func (s *JobService) GetJobStatus(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID) (*entity.Job, error) {
	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "JobLookupFailed", "failed to load job", err)
	}
	if job == nil {
		return nil, domainerrors.ErrJobNotFound
	}
	switch {
	case job.Status.Terminal():
		job.Progress = 100
	case job.TotalBatches > 0:
		job.Progress = 100 * float64(job.CurrentBatch) / float64(job.TotalBatches)
	}
	return job, nil
}

// GetJobResults returns a page of filtered profiles; requesting results
// before the job reaches completed is rejected with JobNotComplete.
func (s *JobService) GetJobResults(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, page, limit int) (*entity.JobResultPage, error) {
	job, err := s.jobs.GetByID(ctx, tenantID, jobID)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "JobLookupFailed", "failed to load job", err)
	}
	if job == nil {
		return nil, domainerrors.ErrJobNotFound
	}
	if job.Status != valueobject.JobStatusCompleted {
		return nil, domainerrors.ErrJobNotComplete
	}
	return s.jobResults.Page(ctx, tenantID, jobID, page, limit)
}

func chunkJobResults(items []*entity.JobResult, size int) [][]*entity.JobResult {
	var chunks [][]*entity.JobResult
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
