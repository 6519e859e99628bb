package worker

import (
	"context"

	"github.com/hibiken/asynq"

	appservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/application/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/worker"
)

// Server wraps the Asynq server and scheduler for background job
// processing: the Job Engine's (C5) fan-out/fan-in batches plus the four
// scheduled per-tenant Lifecycle/Sync sweeps.
type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	handlers  *Handlers
	logger    domainservice.Logger
}

// NewServer creates a new Asynq worker server with every handler
// registered, priority queues matching worker.QueueScraping/
// QueueProcessing/QueueDefault (spec.md §5).
func NewServer(
	redisAddr string,
	jobs *appservice.JobService,
	dailyPipe *appservice.DailyPipelineService,
	sync *appservice.ExternalSyncService,
	lifecycle *appservice.LifecycleService,
	tenantConfig repository.TenantConfigRepository,
	client *Client,
	logger domainservice.Logger,
) *Server {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			// worker.WorkerRecycleTasks (50 tasks per worker_max_tasks_per_child
			// in the original) is enforced by the deployment's process
			// supervisor recycling the pod, not by asynq itself.
			Concurrency: 10,
			Queues: map[string]int{
				worker.QueueScraping:   6,
				worker.QueueProcessing: 3,
				worker.QueueDefault:    1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{Logger: &asynqLogger{logger: logger}},
	)

	handlers := NewHandlers(jobs, dailyPipe, sync, lifecycle, tenantConfig, client, logger)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TypeScrapeBatch, handlers.HandleScrapeBatch)
	mux.HandleFunc(worker.TypeScrapeAggregate, handlers.HandleScrapeAggregate)
	mux.HandleFunc(worker.TypeDailyPipeline, handlers.HandleDailyPipeline)
	mux.HandleFunc(worker.TypeSyncStatusesIn, handlers.HandleSyncStatusesIn)
	mux.HandleFunc(worker.TypeMarkUnfollowDue, handlers.HandleMarkUnfollowDue)
	mux.HandleFunc(worker.TypeDeleteCompletedAfterDelay, handlers.HandleDeleteCompletedAfterDelay)
	mux.HandleFunc(worker.TypePurgeOldTelemetry, handlers.HandlePurgeOldTelemetry)
	mux.HandleFunc(worker.TypeSweepAllTenants, handlers.HandleSweepAllTenants)
	mux.HandleFunc(worker.TypeDailySweepAllTenants, handlers.HandleDailySweepAllTenants)

	return &Server{
		server:    server,
		scheduler: scheduler,
		mux:       mux,
		handlers:  handlers,
		logger:    logger,
	}
}

// Run starts the Asynq server and scheduler. Blocks until shut down.
func (s *Server) Run() error {
	s.logger.Info("starting Asynq worker server")

	// Pull-sync and lifecycle sweeps run frequently across every tenant
	// (spec.md §7's "run periodically by an external scheduler").
	if _, err := s.scheduler.Register("@every 15m", worker.NewSweepAllTenantsTask()); err != nil {
		s.logger.Error("failed to register sweep-all-tenants task", "error", err)
		return err
	}
	s.logger.Info("registered sweep-all-tenants task", "schedule", "@every 15m")

	// RunDaily fans out once per day, per spec.md §1's "once per day
	// selects a fresh working set" framing.
	if _, err := s.scheduler.Register("@daily", worker.NewDailySweepAllTenantsTask()); err != nil {
		s.logger.Error("failed to register daily-sweep-all-tenants task", "error", err)
		return err
	}
	s.logger.Info("registered daily-sweep-all-tenants task", "schedule", "@daily")

	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.logger.Error("scheduler error", "error", err)
		}
	}()

	return s.server.Run(s.mux)
}

// Shutdown gracefully stops the server and scheduler.
func (s *Server) Shutdown() {
	s.logger.Info("shutting down Asynq worker server")
	s.scheduler.Shutdown()
	s.server.Shutdown()
}

// asynqLogger adapts our Logger to asynq's logger interface.
type asynqLogger struct {
	logger domainservice.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug("asynq", "msg", args) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info("asynq", "msg", args) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn("asynq", "msg", args) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error("asynq", "msg", args) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Error("asynq fatal", "msg", args) }
