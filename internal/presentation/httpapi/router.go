// Package httpapi exposes spec.md §6's external interface over a thin
// net/http.ServeMux layer — the teacher pack's own internal/handlers import
// github.com/gin-gonic/gin, but that dependency is absent from the
// teacher's go.mod/go.sum (see DESIGN.md), so this layer follows stdlib
// net/http instead, in the teacher's handler-per-operation style.
package httpapi

import (
	"net/http"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/middleware"
)

// NewRouter wires every operation in spec.md §6's external interface table
// onto a stdlib ServeMux using Go 1.22+ method+path patterns.
func NewRouter(h *Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/jobs", h.SubmitScrape)
	mux.HandleFunc("GET /v1/jobs/{job_id}", h.GetJobStatus)
	mux.HandleFunc("GET /v1/jobs/{job_id}/results", h.GetJobResults)

	mux.HandleFunc("POST /v1/profiles/ingest", h.IngestProfiles)

	mux.HandleFunc("POST /v1/pipeline/run-daily", h.RunDaily)
	mux.HandleFunc("POST /v1/campaigns/select", h.DailySelect)
	mux.HandleFunc("POST /v1/campaigns/{campaign_id}/distribute", h.Distribute)
	mux.HandleFunc("POST /v1/campaigns/{campaign_id}/sync-out", h.SyncCampaignOut)

	mux.HandleFunc("POST /v1/sync/statuses-in", h.SyncStatusesIn)

	mux.HandleFunc("POST /v1/lifecycle/mark-unfollow-due", h.MarkUnfollowDue)
	mux.HandleFunc("POST /v1/lifecycle/delete-completed", h.DeleteCompletedAfterDelay)

	mux.HandleFunc("POST /v1/external-base", h.CreateExternalBase)
	mux.HandleFunc("GET /v1/external-base/verify", h.VerifyExternalBase)

	mux.HandleFunc("GET /healthz", h.Healthz)

	return middleware.TenantContext(mux)
}
