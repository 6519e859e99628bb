package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// Job is one asynchronous scrape request (C5).
type Job struct {
	JobID              uuid.UUID
	TenantID           string
	Status             valueobject.JobStatus
	Accounts           []string
	TargetGender       valueobject.Gender
	MaxCountPerAccount int
	TotalBatches       int
	CurrentBatch       int
	Progress           float64
	ProfilesScraped    int
	TotalScraped       int
	TotalFiltered      int
	ErrorMessage       *string
	CreatedAt          time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

// JobResult is one filtered profile attached to a job, paginated by
// created_at desc.
type JobResult struct {
	JobID       uuid.UUID
	ProfileID   string
	Username    string
	DisplayName string
	CreatedAt   time.Time
	TenantID    string
}

// JobResultPage is the paginated GetJobResults response shape.
type JobResultPage struct {
	Page     int
	Limit    int
	Total    int
	Profiles []*JobResult
}
