package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	appservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/application/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/middleware"
)

// Handlers implements every operation in spec.md §6's external interface
// table, one method per operation, each a thin decode/call/encode wrapper
// around an application service.
type Handlers struct {
	jobs      *appservice.JobService
	profiles  *appservice.ProfileStoreService
	selector  *appservice.CampaignSelectorService
	distrib   *appservice.DistributorService
	sync      *appservice.ExternalSyncService
	lifecycle *appservice.LifecycleService
	dailyPipe *appservice.DailyPipelineService
	logger    domainservice.Logger
}

// NewHandlers builds a Handlers instance wired to every application
// service it dispatches to.
func NewHandlers(
	jobs *appservice.JobService,
	profiles *appservice.ProfileStoreService,
	selector *appservice.CampaignSelectorService,
	distrib *appservice.DistributorService,
	sync *appservice.ExternalSyncService,
	lifecycle *appservice.LifecycleService,
	dailyPipe *appservice.DailyPipelineService,
	logger domainservice.Logger,
) *Handlers {
	return &Handlers{
		jobs:      jobs,
		profiles:  profiles,
		selector:  selector,
		distrib:   distrib,
		sync:      sync,
		lifecycle: lifecycle,
		dailyPipe: dailyPipe,
		logger:    logger,
	}
}

// Healthz is a bare liveness probe.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// resolveTenant applies the header-then-body priority rule shared by every
// handler: an X-Tenant-Id header wins over a body tenant_id field.
func resolveTenant(r *http.Request, bodyTenantID string) (tenant.ID, error) {
	return tenant.Resolve(middleware.TenantHeaderFromContext(r.Context()), bodyTenantID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a DomainError's Kind to an HTTP status code, per
// spec.md §6's external-interface error taxonomy.
func writeError(w http.ResponseWriter, err error) {
	var de *domainerrors.DomainError
	if !errors.As(err, &de) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "Internal", Message: err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch de.Kind {
	case domainerrors.KindValidation:
		status = http.StatusBadRequest
	case domainerrors.KindNotFound:
		status = http.StatusNotFound
	case domainerrors.KindPrecondition, domainerrors.KindConflict:
		status = http.StatusConflict
	case domainerrors.KindTransient:
		status = http.StatusServiceUnavailable
	case domainerrors.KindFatal:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Code: de.Code, Message: de.Message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- Job Engine (C5) ---

type submitScrapeRequest struct {
	TenantID         string   `json:"tenant_id"`
	Platform         string   `json:"platform"`
	Accounts         []string `json:"accounts"`
	TotalScrapeCount *int     `json:"total_scrape_count,omitempty"`
	TargetGender     string   `json:"target_gender,omitempty"`
}

func (h *Handlers) SubmitScrape(w http.ResponseWriter, r *http.Request) {
	var req submitScrapeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	platform, err := valueobject.ParsePlatform(req.Platform)
	if err != nil {
		writeError(w, domainerrors.ErrUnknownPlatform)
		return
	}
	var gender valueobject.Gender
	if req.TargetGender != "" {
		g, ok := valueobject.ParseGender(req.TargetGender)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadGender", Message: "target_gender must be male or female"})
			return
		}
		gender = g
	}

	job, err := h.jobs.SubmitScrape(r.Context(), tenantID, platform, req.Accounts, req.TotalScrapeCount, gender)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := resolveTenant(r, r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, err := uuid.Parse(r.PathValue("job_id"))
	if err != nil {
		writeError(w, domainerrors.ErrJobNotFound)
		return
	}
	job, err := h.jobs.GetJobStatus(r.Context(), tenantID, jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handlers) GetJobResults(w http.ResponseWriter, r *http.Request) {
	tenantID, err := resolveTenant(r, r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	jobID, err := uuid.Parse(r.PathValue("job_id"))
	if err != nil {
		writeError(w, domainerrors.ErrJobNotFound)
		return
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 100)

	result, err := h.jobs.GetJobResults(r.Context(), tenantID, jobID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// --- Profile Store (C2) ---

type ingestProfilesRequest struct {
	TenantID string                    `json:"tenant_id"`
	Profiles []*entity.CanonicalProfile `json:"profiles"`
}

func (h *Handlers) IngestProfiles(w http.ResponseWriter, r *http.Request) {
	var req ingestProfilesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.profiles.IngestBatch(r.Context(), tenantID, req.Profiles)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Daily Pipeline / Campaign Selector (C6) / Distributor (C7) / Sync (C8) ---

type dailyPipelineRequest struct {
	TenantID         string `json:"tenant_id"`
	CampaignDate     string `json:"campaign_date,omitempty"`
	ProfilesPerQueue int    `json:"profiles_per_queue,omitempty"`
}

func (h *Handlers) RunDaily(w http.ResponseWriter, r *http.Request) {
	var req dailyPipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	summary := h.dailyPipe.RunDaily(r.Context(), tenantID, parseDate(req.CampaignDate), req.ProfilesPerQueue)
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handlers) DailySelect(w http.ResponseWriter, r *http.Request) {
	var req dailyPipelineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.selector.DailySelect(r.Context(), tenantID, parseDate(req.CampaignDate), req.ProfilesPerQueue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type campaignScopedRequest struct {
	TenantID         string `json:"tenant_id"`
	ProfilesPerQueue int    `json:"profiles_per_queue,omitempty"`
}

func (h *Handlers) Distribute(w http.ResponseWriter, r *http.Request) {
	var req campaignScopedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	campaignID, err := uuid.Parse(r.PathValue("campaign_id"))
	if err != nil {
		writeError(w, domainerrors.ErrCampaignNotFound)
		return
	}
	result, err := h.distrib.Distribute(r.Context(), tenantID, campaignID, req.ProfilesPerQueue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) SyncCampaignOut(w http.ResponseWriter, r *http.Request) {
	var req campaignScopedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	campaignID, err := uuid.Parse(r.PathValue("campaign_id"))
	if err != nil {
		writeError(w, domainerrors.ErrCampaignNotFound)
		return
	}
	result, err := h.sync.SyncCampaignOut(r.Context(), tenantID, campaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type tenantOnlyRequest struct {
	TenantID string `json:"tenant_id"`
}

func (h *Handlers) SyncStatusesIn(w http.ResponseWriter, r *http.Request) {
	var req tenantOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	synced, err := h.sync.SyncStatusesIn(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"synced": synced})
}

// --- Lifecycle Engine (C9) ---

func (h *Handlers) MarkUnfollowDue(w http.ResponseWriter, r *http.Request) {
	var req tenantOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.lifecycle.MarkUnfollowDue(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *Handlers) DeleteCompletedAfterDelay(w http.ResponseWriter, r *http.Request) {
	var req tenantOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	count, err := h.lifecycle.DeleteCompletedAfterDelay(r.Context(), tenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// --- External Sync base provisioning (C8) ---

type externalBaseRequest struct {
	TenantID  string `json:"tenant_id"`
	NumQueues int    `json:"num_queues"`
}

func (h *Handlers) CreateExternalBase(w http.ResponseWriter, r *http.Request) {
	var req externalBaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "BadRequest", Message: err.Error()})
		return
	}
	tenantID, err := resolveTenant(r, req.TenantID)
	if err != nil {
		writeError(w, err)
		return
	}
	created, skipped, failed, err := h.sync.CreateExternalBase(r.Context(), tenantID, req.NumQueues)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created, "skipped": skipped, "failed": failed})
}

func (h *Handlers) VerifyExternalBase(w http.ResponseWriter, r *http.Request) {
	tenantID, err := resolveTenant(r, r.URL.Query().Get("tenant_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	numQueues := queryInt(r, "num_queues", 0)
	valid, missing, extra, err := h.sync.VerifyExternalBase(r.Context(), tenantID, numQueues)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": valid, "missing": missing, "extra": extra})
}
