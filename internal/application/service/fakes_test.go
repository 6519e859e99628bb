package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/repository"
	domainservice "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/service"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

// fakeLogger is a no-op Logger satisfying domainservice.Logger, used by
// every service test in this package in place of the slog adapter.
type fakeLogger struct{}

func (fakeLogger) Debug(msg string, args ...any)         {}
func (fakeLogger) Info(msg string, args ...any)          {}
func (fakeLogger) Warn(msg string, args ...any)          {}
func (fakeLogger) Error(msg string, args ...any)         {}
func (l fakeLogger) With(args ...any) domainservice.Logger { return l }
func (l fakeLogger) WithContext(ctx context.Context) domainservice.Logger { return l }

// --- ProfileRepository ---

type fakeProfileRepo struct {
	mu      sync.Mutex
	raw     []*entity.RawProfile
	global  map[string]*entity.GlobalProfile // key tenant|id
	failNext map[string]bool
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{global: map[string]*entity.GlobalProfile{}, failNext: map[string]bool{}}
}

func gkey(t tenant.ID, id string) string { return string(t) + "|" + id }

func (f *fakeProfileRepo) ExistingProfileIDs(ctx context.Context, tenantID tenant.ID, ids []string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := f.global[gkey(tenantID, id)]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) InsertRawProfiles(ctx context.Context, tenantID tenant.ID, profiles []*entity.RawProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append(f.raw, profiles...)
	return nil
}

func (f *fakeProfileRepo) InsertRawProfile(ctx context.Context, profile *entity.RawProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = append(f.raw, profile)
	return nil
}

func (f *fakeProfileRepo) InsertGlobalProfiles(ctx context.Context, tenantID tenant.ID, profiles []*entity.GlobalProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range profiles {
		k := gkey(tenantID, p.ProfileID)
		if _, exists := f.global[k]; exists {
			return fmt.Errorf("duplicate in batch")
		}
	}
	for _, p := range profiles {
		f.global[gkey(tenantID, p.ProfileID)] = p
	}
	return nil
}

func (f *fakeProfileRepo) InsertGlobalProfile(ctx context.Context, profile *entity.GlobalProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := gkey(tenant.ID(profile.TenantID), profile.ProfileID)
	if _, exists := f.global[k]; exists {
		return repository.ErrDuplicateProfile
	}
	f.global[k] = profile
	return nil
}

func (f *fakeProfileRepo) SelectUnused(ctx context.Context, tenantID tenant.ID, limit int) ([]*entity.GlobalProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k, p := range f.global {
		if p.TenantID == string(tenantID) && !p.Used {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var out []*entity.GlobalProfile
	for _, k := range keys {
		if len(out) >= limit {
			break
		}
		out = append(out, f.global[k])
	}
	return out, nil
}

func (f *fakeProfileRepo) MarkUsed(ctx context.Context, tenantID tenant.ID, profileIDs []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	now := time.Now().UTC()
	for _, id := range profileIDs {
		k := gkey(tenantID, id)
		p, ok := f.global[k]
		if !ok || p.Used {
			continue
		}
		p.Used = true
		p.UsedAt = &now
		n++
	}
	return n, nil
}

func (f *fakeProfileRepo) PurgeRawProfilesOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.raw[:0]
	var n int64
	for _, r := range f.raw {
		if r.TenantID == string(tenantID) && r.ScrapedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.raw = kept
	return n, nil
}

// --- CampaignRepository ---

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*entity.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[uuid.UUID]*entity.Campaign{}}
}

func (f *fakeCampaignRepo) Create(ctx context.Context, c *entity.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.campaigns[c.CampaignID] = c
	return nil
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, tenantID tenant.ID, id uuid.UUID) (*entity.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.TenantID != string(tenantID) {
		return nil, nil
	}
	return c, nil
}

func (f *fakeCampaignRepo) SetTotalAssigned(ctx context.Context, tenantID tenant.ID, id uuid.UUID, total int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[id]; ok {
		c.TotalAssigned = total
	}
	return nil
}

func (f *fakeCampaignRepo) SetDistributed(ctx context.Context, tenantID tenant.ID, id uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[id]; ok {
		c.DistributedAt = &at
	}
	return nil
}

func (f *fakeCampaignRepo) SetSyncStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, synced bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.campaigns[id]; ok {
		c.Status = synced
	}
	return nil
}

func (f *fakeCampaignRepo) PurgeOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, c := range f.campaigns {
		if c.TenantID == string(tenantID) && c.CampaignDate.Before(cutoff) {
			delete(f.campaigns, id)
			n++
		}
	}
	return n, nil
}

// --- AssignmentRepository ---

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[uuid.UUID]*entity.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: map[uuid.UUID]*entity.Assignment{}}
}

func (f *fakeAssignmentRepo) InsertPlaceholders(ctx context.Context, assignments []*entity.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assignments {
		f.assignments[a.AssignmentID] = a
	}
	return nil
}

func (f *fakeAssignmentRepo) PlaceholdersForCampaign(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) ([]*entity.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Assignment
	for _, a := range f.assignments {
		if a.TenantID == string(tenantID) && a.CampaignID == campaignID && a.IsPlaceholder() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProfileID < out[j].ProfileID })
	return out, nil
}

func (f *fakeAssignmentRepo) UpdateSlot(ctx context.Context, a *entity.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.AssignmentID] = a
	return nil
}

func (f *fakeAssignmentRepo) PackedForCampaign(ctx context.Context, tenantID tenant.ID, campaignID uuid.UUID) ([]*entity.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Assignment
	for _, a := range f.assignments {
		if a.TenantID == string(tenantID) && a.CampaignID == campaignID && a.QueueIndex > 0 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueueIndex != out[j].QueueIndex {
			return out[i].QueueIndex < out[j].QueueIndex
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (f *fakeAssignmentRepo) ByTenantProfileQueue(ctx context.Context, tenantID tenant.ID, profileID string, queueIndex int) (*entity.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.TenantID == string(tenantID) && a.ProfileID == profileID && a.QueueIndex == queueIndex {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAssignmentRepo) UpdateState(ctx context.Context, tenantID tenant.ID, id uuid.UUID, state valueobject.AssignmentState, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assignments[id]; ok {
		a.State = state
		a.UpdatedAt = at
	}
	return nil
}

func (f *fakeAssignmentRepo) AgingCandidates(ctx context.Context, tenantID tenant.ID, cutoff time.Time) ([]*entity.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Assignment
	for _, a := range f.assignments {
		if a.TenantID != string(tenantID) {
			continue
		}
		if (a.State == valueobject.AssignmentPending || a.State == valueobject.AssignmentFollowed) && !a.AssignedAt.After(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) CompletedOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) ([]*entity.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Assignment
	for _, a := range f.assignments {
		if a.TenantID == string(tenantID) && a.State == valueobject.AssignmentCompleted && !a.UpdatedAt.After(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) Delete(ctx context.Context, tenantID tenant.ID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.assignments, id)
	return nil
}

func (f *fakeAssignmentRepo) PurgeOlderThan(ctx context.Context, tenantID tenant.ID, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, a := range f.assignments {
		if a.TenantID == string(tenantID) && a.AssignedAt.Before(cutoff) {
			delete(f.assignments, id)
			n++
		}
	}
	return n, nil
}

// --- JobRepository ---

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.Job
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: map[uuid.UUID]*entity.Job{}}
}

func (f *fakeJobRepo) Create(ctx context.Context, job *entity.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.JobID] = job
	return nil
}

func (f *fakeJobRepo) GetByID(ctx context.Context, tenantID tenant.ID, id uuid.UUID) (*entity.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok || j.TenantID != string(tenantID) {
		return nil, nil
	}
	return j, nil
}

func (f *fakeJobRepo) SetProcessing(ctx context.Context, tenantID tenant.ID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		j.Status = valueobject.JobStatusProcessing
		now := time.Now().UTC()
		j.StartedAt = &now
	}
	return nil
}

func (f *fakeJobRepo) IncrementProfilesScraped(ctx context.Context, tenantID tenant.ID, id uuid.UUID, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		j.ProfilesScraped += delta
	}
	return nil
}

func (f *fakeJobRepo) IncrementBatchesCompleted(ctx context.Context, tenantID tenant.ID, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return 0, fmt.Errorf("job not found")
	}
	j.CurrentBatch++
	return j.CurrentBatch, nil
}

func (f *fakeJobRepo) MarkFailed(ctx context.Context, tenantID tenant.ID, id uuid.UUID, cause string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		j.Status = valueobject.JobStatusFailed
		j.ErrorMessage = &cause
		now := time.Now().UTC()
		j.CompletedAt = &now
	}
	return nil
}

func (f *fakeJobRepo) MarkCompleted(ctx context.Context, tenantID tenant.ID, id uuid.UUID, totalScraped, totalFiltered int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		j.Status = valueobject.JobStatusCompleted
		j.TotalScraped = totalScraped
		j.TotalFiltered = totalFiltered
		j.Progress = 100
		now := time.Now().UTC()
		j.CompletedAt = &now
	}
	return nil
}

// --- JobResultRepository ---

type fakeJobResultRepo struct {
	mu      sync.Mutex
	results []*entity.JobResult
}

func newFakeJobResultRepo() *fakeJobResultRepo {
	return &fakeJobResultRepo{}
}

func (f *fakeJobResultRepo) InsertBatch(ctx context.Context, results []*entity.JobResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, results...)
	return nil
}

func (f *fakeJobResultRepo) Page(ctx context.Context, tenantID tenant.ID, jobID uuid.UUID, page, limit int) (*entity.JobResultPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matching []*entity.JobResult
	for _, r := range f.results {
		if r.TenantID == string(tenantID) && r.JobID == jobID {
			matching = append(matching, r)
		}
	}
	sort.Slice(matching, func(i, j int) bool { return matching[i].CreatedAt.After(matching[j].CreatedAt) })
	start := (page - 1) * limit
	if start > len(matching) {
		start = len(matching)
	}
	end := start + limit
	if end > len(matching) {
		end = len(matching)
	}
	return &entity.JobResultPage{Page: page, Limit: limit, Total: len(matching), Profiles: matching[start:end]}, nil
}

// --- TenantConfigRepository ---

type fakeTenantConfigRepo struct {
	mu      sync.Mutex
	configs map[tenant.ID]*entity.TenantConfig
}

func newFakeTenantConfigRepo() *fakeTenantConfigRepo {
	return &fakeTenantConfigRepo{configs: map[tenant.ID]*entity.TenantConfig{}}
}

func (f *fakeTenantConfigRepo) GetByTenantID(ctx context.Context, tenantID tenant.ID) (*entity.TenantConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[tenantID], nil
}

func (f *fakeTenantConfigRepo) Upsert(ctx context.Context, cfg *entity.TenantConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs[tenant.ID(cfg.TenantID)] = cfg
	return nil
}

func (f *fakeTenantConfigRepo) ListTenantIDs(ctx context.Context) ([]tenant.ID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tenant.ID
	for id := range f.configs {
		out = append(out, id)
	}
	return out, nil
}

// --- ScrapeAdapter ---

type fakeScrapeAdapter struct {
	profiles map[string]*entity.CanonicalProfile
	err      error
}

func (f *fakeScrapeAdapter) Scrape(ctx context.Context, platform valueobject.Platform, accounts []string, maxPerAccount int) (map[string]*entity.CanonicalProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

// --- RecordStore ---

type fakeRecordStore struct {
	mu     sync.Mutex
	tables map[string][]domainservice.RecordStoreRow // key tenantBaseID|queueIndex
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{tables: map[string][]domainservice.RecordStoreRow{}}
}

func rkey(base string, q int) string { return fmt.Sprintf("%s|%d", base, q) }

func (f *fakeRecordStore) PushChunk(ctx context.Context, tenantBaseID string, queueIndex int, rows []domainservice.RecordStoreRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rkey(tenantBaseID, queueIndex)
	f.tables[k] = append(f.tables[k], rows...)
	return nil
}

func (f *fakeRecordStore) ClearTable(ctx context.Context, tenantBaseID string, queueIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tables, rkey(tenantBaseID, queueIndex))
	return nil
}

func (f *fakeRecordStore) PullTable(ctx context.Context, tenantBaseID string, queueIndex int) ([]domainservice.RecordStoreRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tables[rkey(tenantBaseID, queueIndex)], nil
}

func (f *fakeRecordStore) DeleteRows(ctx context.Context, tenantBaseID string, queueIndex int, profileIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	toDelete := map[string]struct{}{}
	for _, id := range profileIDs {
		toDelete[id] = struct{}{}
	}
	k := rkey(tenantBaseID, queueIndex)
	kept := f.tables[k][:0]
	for _, row := range f.tables[k] {
		if _, del := toDelete[row.ProfileID]; del {
			continue
		}
		kept = append(kept, row)
	}
	f.tables[k] = kept
	return nil
}

func (f *fakeRecordStore) CreateBase(ctx context.Context, tenantBaseID string, numQueues int) (int, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	created := 0
	for q := 1; q <= numQueues; q++ {
		k := rkey(tenantBaseID, q)
		if _, exists := f.tables[k]; !exists {
			f.tables[k] = nil
			created++
		}
	}
	return created, numQueues - created, 0, nil
}

func (f *fakeRecordStore) VerifyBase(ctx context.Context, tenantBaseID string, numQueues int) (bool, []string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var missing []string
	for q := 1; q <= numQueues; q++ {
		if _, exists := f.tables[rkey(tenantBaseID, q)]; !exists {
			missing = append(missing, fmt.Sprintf("WorkQueue_%02d", q))
		}
	}
	return len(missing) == 0, missing, nil, nil
}

func (f *fakeRecordStore) CountQueueTables(ctx context.Context, tenantBaseID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	prefix := tenantBaseID + "|"
	for k := range f.tables {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			n++
		}
	}
	return n, nil
}

// --- worker.Enqueuer ---

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func newFakeEnqueuer() *fakeEnqueuer { return &fakeEnqueuer{} }

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (f *fakeEnqueuer) byType(typ string) []*asynq.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*asynq.Task
	for _, t := range f.tasks {
		if t.Type() == typ {
			out = append(out, t)
		}
	}
	return out
}
