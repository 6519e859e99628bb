// Package config loads process configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port string

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	MigrationsPath string

	// Encryption
	EncryptionKey string // 32-byte hex-encoded key for ChaCha20-Poly1305 (record-store tokens)

	// Worker / Redis (Asynq)
	RedisURL string

	// Upstream Scrape Adapter (C3)
	ScrapeBaseURL        string
	ScrapeAPIKey         string
	ScrapeActorInstagram string
	ScrapeActorThreads   string
	ScrapeActorTikTok    string
	ScrapeActorX         string

	// External Sync record-store (C8)
	RecordStoreBaseURL string
	RecordStoreAPIKey  string

	// Queue-count / pacing defaults (spec.md §6)
	DefaultQueueCount       int
	DefaultProfilesPerQueue int
	IngestionPaceInterval   time.Duration

	// Lifecycle Engine (C9) age thresholds
	UnfollowAgeThreshold     time.Duration
	CompletedDeleteThreshold time.Duration
	TelemetryRetentionWindow time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    databaseURL,
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "file://db/migrations"),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		ScrapeBaseURL:        getEnv("SCRAPE_BASE_URL", "https://api.apify.com"),
		ScrapeAPIKey:         getEnv("SCRAPE_API_KEY", ""),
		ScrapeActorInstagram: getEnv("SCRAPE_ACTOR_INSTAGRAM", ""),
		ScrapeActorThreads:   getEnv("SCRAPE_ACTOR_THREADS", ""),
		ScrapeActorTikTok:    getEnv("SCRAPE_ACTOR_TIKTOK", ""),
		ScrapeActorX:         getEnv("SCRAPE_ACTOR_X", ""),

		RecordStoreBaseURL: getEnv("RECORD_STORE_BASE_URL", "https://api.airtable.com/v0"),
		RecordStoreAPIKey:  getEnv("RECORD_STORE_API_KEY", ""),

		DefaultQueueCount:       getEnvInt("DEFAULT_QUEUE_COUNT", 80),
		DefaultProfilesPerQueue: getEnvInt("DEFAULT_PROFILES_PER_QUEUE", 180),
		IngestionPaceInterval:   getEnvDuration("INGESTION_PACE_INTERVAL", 100*time.Millisecond),

		UnfollowAgeThreshold:     getEnvDuration("UNFOLLOW_AGE_THRESHOLD", 7*24*time.Hour),
		CompletedDeleteThreshold: getEnvDuration("COMPLETED_DELETE_THRESHOLD", 24*time.Hour),
		TelemetryRetentionWindow: getEnvDuration("TELEMETRY_RETENTION_WINDOW", 8*24*time.Hour),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
