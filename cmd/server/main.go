package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/application/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/config"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/crypto"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/external/recordstore"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/external/scrape"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/logging"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/persistence/postgres"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/infrastructure/worker"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/presentation/httpapi"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/pkg/httputil"
)

func main() {
	logger := logging.New()
	logger.Info("starting campaign orchestrator")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.EncryptionKey == "" {
		logger.Warn("ENCRYPTION_KEY not configured, external record-store tokens cannot be encrypted at rest")
	} else if _, err := crypto.NewEncryptor(cfg.EncryptionKey); err != nil {
		logger.Error("invalid ENCRYPTION_KEY", "error", err)
		os.Exit(1)
	}

	db, err := postgres.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	if err := runMigrations(db.DB, cfg.MigrationsPath, logger); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	profileRepo := postgres.NewProfileRepository(db.DB)
	campaignRepo := postgres.NewCampaignRepository(db.DB)
	assignmentRepo := postgres.NewAssignmentRepository(db.DB)
	jobRepo := postgres.NewJobRepository(db.DB)
	jobResultRepo := postgres.NewJobResultRepository(db.DB)
	tenantConfigRepo := postgres.NewTenantConfigRepository(db.DB)

	httpClient := httputil.NewClient()

	// Upstream Scrape Adapter (C3)
	actorIDs := map[valueobject.Platform]string{
		valueobject.PlatformInstagram: cfg.ScrapeActorInstagram,
		valueobject.PlatformThreads:   cfg.ScrapeActorThreads,
		valueobject.PlatformTikTok:    cfg.ScrapeActorTikTok,
		valueobject.PlatformX:         cfg.ScrapeActorX,
	}
	scrapeAdapter := scrape.NewAdapter(httpClient, cfg.ScrapeBaseURL, cfg.ScrapeAPIKey, actorIDs, logger)

	// External Sync record-store (C8)
	recordStore := recordstore.NewClient(httpClient, cfg.RecordStoreBaseURL, cfg.RecordStoreAPIKey, logger)

	// Asynq enqueue-side client, shared by application services and the
	// worker server's own scheduled fan-out handlers.
	redisAddr := strings.TrimPrefix(cfg.RedisURL, "redis://")
	workerClient := worker.NewClient(redisAddr)
	defer workerClient.Close()
	logger.Info("Asynq client initialized", "redis_addr", redisAddr)

	// Application services
	profileStore := service.NewProfileStoreService(profileRepo, logger)
	jobService := service.NewJobService(jobRepo, jobResultRepo, profileStore, workerClient, scrapeAdapter, nil, logger)
	queueCountResolver := service.NewQueueCountResolver(tenantConfigRepo, recordStore, logger)
	selectorService := service.NewCampaignSelectorService(campaignRepo, assignmentRepo, profileRepo, queueCountResolver, logger)
	distributorService := service.NewDistributorService(campaignRepo, assignmentRepo, queueCountResolver, logger)
	externalSyncService := service.NewExternalSyncService(campaignRepo, assignmentRepo, recordStore, queueCountResolver, logger)
	lifecycleService := service.NewLifecycleService(campaignRepo, assignmentRepo, profileRepo, recordStore, queueCountResolver, logger)
	dailyPipelineService := service.NewDailyPipelineService(selectorService, distributorService, externalSyncService, logger)

	// HTTP layer
	handlers := httpapi.NewHandlers(jobService, profileStore, selectorService, distributorService, externalSyncService, lifecycleService, dailyPipelineService, logger)
	router := httpapi.NewRouter(handlers)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Asynq worker server: the Job Engine's fan-out/fan-in batches plus the
	// scheduled per-tenant lifecycle/sync/pipeline sweeps.
	workerServer := worker.NewServer(
		redisAddr,
		jobService,
		dailyPipelineService,
		externalSyncService,
		lifecycleService,
		tenantConfigRepo,
		workerClient,
		logger,
	)

	go func() {
		if err := workerServer.Run(); err != nil {
			logger.Error("Asynq worker server error", "error", err)
		}
	}()
	logger.Info("Asynq worker server started")

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	workerServer.Shutdown()
	logger.Info("Asynq worker server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// runMigrations applies every pending db/migrations/*.sql file using
// golang-migrate, the same migration engine the teacher pack depends on
// (though the retrieved teacher files never call it directly — see
// DESIGN.md).
func runMigrations(db *sql.DB, migrationsPath string, logger *logging.Logger) error {
	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(migrationsPath, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	logger.Info("database migrations applied")
	return nil
}
