package entity

import "time"

// RawProfile is an append-only log of one scrape event. It carries no
// uniqueness constraint: the same profile scraped twice yields two rows.
// Written by the Job Engine's batch tasks (through the Profile Store's
// ingestion) as each batch is scraped, not by the aggregation task; purged
// by the Lifecycle Engine once older than 8 days.
type RawProfile struct {
	ProfileID   string
	Username    string
	DisplayName string
	ScrapedAt   time.Time
	TenantID    string
}

// GlobalProfile is the deduplicated working pool for one tenant: exactly
// one row per (tenant_id, profile_id). Used transitions false->true are
// one-way within a campaign lifetime.
type GlobalProfile struct {
	ProfileID   string
	Username    string
	DisplayName string
	Used        bool
	UsedAt      *time.Time
	CreatedAt   time.Time
	TenantID    string
}

// CanonicalProfile is the normalized shape every platform adapter (C3)
// produces, regardless of the heterogeneous upstream wire format.
type CanonicalProfile struct {
	ID             string
	Username       string
	DisplayName    string
	FollowerCount  int
	FollowingCount int
	PostsCount     int
}
