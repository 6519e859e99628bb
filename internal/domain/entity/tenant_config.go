package entity

import "time"

// TenantConfig is the ambient per-tenant record this repo adds beyond
// spec.md's core data model: the queue-count override, the external
// record-store base id, and its encrypted access token. Grounded on the
// original's scraping_jobs.num_vas column and on the teacher's per-tenant
// encrypted-credential pattern (see DESIGN.md).
type TenantConfig struct {
	TenantID               string
	NumVAs                 *int // queue-count discovery strategy 1, nil = not configured
	ExternalBaseID         string
	EncryptedExternalToken []byte
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
