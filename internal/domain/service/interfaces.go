// Package service declares the small set of interfaces application
// services depend on that are not storage (logging, the upstream scrape
// actor, the external record-store). Concrete implementations are external
// collaborators per spec.md §1 and live under internal/infrastructure.
package service

import (
	"context"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// Logger abstracts structured logging operations.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)

	// With returns a new logger with the given key-value pairs.
	With(args ...any) Logger

	// WithContext returns a new logger with context.
	WithContext(ctx context.Context) Logger
}

// ScrapeAdapter abstracts the Upstream Scrape Adapter (C3): a
// platform-parameterized invocation of the external extraction service.
type ScrapeAdapter interface {
	// Scrape returns a map of username -> canonical profile for the given
	// platform and account list. Unknown platform is a fatal configuration
	// error; retry/backoff on transient failure is the adapter's job.
	Scrape(ctx context.Context, platform valueobject.Platform, accounts []string, maxPerAccount int) (map[string]*entity.CanonicalProfile, error)
}

// RecordStoreRow is one row pushed to or pulled from the external
// record-store, matching the WorkQueue_NN schema in spec.md §6.
type RecordStoreRow struct {
	ProfileID    string
	Username     string
	DisplayName  string
	Platform     valueobject.Platform
	Position     int
	CampaignDate string // ISO date
	State        valueobject.AssignmentState
}

// RecordStore abstracts the External Sync (C8) record-store client.
type RecordStore interface {
	// PushChunk submits at most 10 rows to table WorkQueue_{queueIndex:02d}.
	PushChunk(ctx context.Context, tenantBaseID string, queueIndex int, rows []RecordStoreRow) error

	// ClearTable deletes all rows from a queue table, used by the
	// clear-before-push policy ahead of a SyncOut push.
	ClearTable(ctx context.Context, tenantBaseID string, queueIndex int) error

	// PullTable fetches all rows currently in a queue table.
	PullTable(ctx context.Context, tenantBaseID string, queueIndex int) ([]RecordStoreRow, error)

	// DeleteRows deletes specific rows (by profile id) from a queue table,
	// in chunks of at most 10, used by DeleteCompletedAfterDelay.
	DeleteRows(ctx context.Context, tenantBaseID string, queueIndex int, profileIDs []string) error

	// CreateBase provisions numQueues WorkQueue_NN tables for a fresh
	// tenant base. Returns counts of created/skipped/failed tables.
	CreateBase(ctx context.Context, tenantBaseID string, numQueues int) (created, skipped, failed int, err error)

	// VerifyBase checks that exactly numQueues WorkQueue_NN tables exist.
	VerifyBase(ctx context.Context, tenantBaseID string, numQueues int) (valid bool, missing, extra []string, err error)

	// CountQueueTables discovers N via queue-count strategy 2: counting
	// existing WorkQueue_NN tables in the tenant's base schema.
	CountQueueTables(ctx context.Context, tenantBaseID string) (int, error)
}
