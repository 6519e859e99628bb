package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// Campaign is one distribution event: a daily working set selected from
// the profile pool and eventually mirrored to the external record-store.
//
// Status conflates "distributed" with "fully mirrored externally"; kept as
// a single bool to match
// spec.md's data model exactly, with DistributedAt added below to recover
// the distinction a consumer might need without renaming the field spec.md
// names.
type Campaign struct {
	CampaignID    uuid.UUID
	CampaignDate  time.Time
	TotalAssigned int
	Status        bool // true = fully mirrored externally
	TenantID      string
	CreatedAt     time.Time

	// DistributedAt is set by the Distributor (C7) the moment placeholders
	// are packed into queues, independent of whether SyncOut later succeeds.
	// It lets Distribute's AlreadyDistributed precondition be checked
	// without overloading Status, which only the Sync push sets.
	DistributedAt *time.Time
}

// Assignment is one profile's slot in a campaign's working set.
type Assignment struct {
	AssignmentID uuid.UUID
	CampaignID   uuid.UUID
	ProfileID    string
	Username     string
	DisplayName  string
	QueueIndex   int // 0 = placeholder/unassigned, 1..N = a worker queue
	Position     int // 0 = placeholder, 1..M within a queue
	State        valueobject.AssignmentState
	AssignedAt   time.Time
	UpdatedAt    time.Time
	TenantID     string
}

// IsPlaceholder reports whether this row is an unpacked placeholder, with
// queue_index=0 and position=0 (the two are zero together, invariant 1 in
// spec.md §8).
func (a *Assignment) IsPlaceholder() bool {
	return a.QueueIndex == 0 && a.Position == 0
}
