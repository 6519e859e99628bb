package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/worker"
)

const testTenant = tenant.ID("appABCDEFGH12345")

func newTestJobService() (*JobService, *fakeJobRepo, *fakeJobResultRepo, *fakeEnqueuer, *fakeScrapeAdapter) {
	jobs := newFakeJobRepo()
	results := newFakeJobResultRepo()
	profiles := NewProfileStoreService(newFakeProfileRepo(), fakeLogger{})
	enq := newFakeEnqueuer()
	scraper := &fakeScrapeAdapter{profiles: map[string]*entity.CanonicalProfile{
		"alice_king": {ID: "p1", Username: "alice_king", DisplayName: "Queen Alice"},
		"bob99":      {ID: "p2", Username: "bob99", DisplayName: "Mr Bob"},
	}}
	svc := NewJobService(jobs, results, profiles, enq, scraper, nil, fakeLogger{})
	return svc, jobs, results, enq, scraper
}

func TestSubmitScrapeDefaultsPerAccountAndEnqueuesBatches(t *testing.T) {
	svc, jobs, _, enq, _ := newTestJobService()

	job, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, []string{"acct1", "acct2"}, nil, valueobject.GenderFemale)
	require.NoError(t, err)
	assert.Equal(t, DefaultPerAccount, job.MaxCountPerAccount)
	assert.Equal(t, 1, job.TotalBatches)
	assert.Equal(t, valueobject.JobStatusProcessing, job.Status)

	stored, _ := jobs.GetByID(context.Background(), testTenant, job.JobID)
	assert.Equal(t, valueobject.JobStatusProcessing, stored.Status)

	assert.Len(t, enq.byType(worker.TypeScrapeBatch), 1)
	assert.Len(t, enq.byType(worker.TypeScrapeAggregate), 1)
}

func TestSubmitScrapeRejectsEmptyAccounts(t *testing.T) {
	svc, _, _, _, _ := newTestJobService()
	_, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, nil, nil, valueobject.GenderMale)
	assert.Same(t, domainerrors.ErrMissingAccounts, err)
}

func TestSubmitScrapeRejectsBadCount(t *testing.T) {
	svc, _, _, _, _ := newTestJobService()
	total := 3
	_, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, []string{"a", "b", "c", "d"}, &total, valueobject.GenderMale)
	assert.Same(t, domainerrors.ErrBadCount, err)
}

func TestSubmitScrapeBatchesAccountsAtFiftyPerBatch(t *testing.T) {
	svc, _, _, enq, _ := newTestJobService()
	accounts := make([]string, 120)
	for i := range accounts {
		accounts[i] = "acct"
	}
	job, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, accounts, nil, valueobject.GenderMale)
	require.NoError(t, err)
	assert.Equal(t, 3, job.TotalBatches)
	assert.Len(t, enq.byType(worker.TypeScrapeBatch), 3)
}

func TestRunScrapeBatchAppliesInclusiveGenderFilterAndTriggersAggregateOnLastBatch(t *testing.T) {
	svc, jobs, results, enq, _ := newTestJobService()

	job, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, []string{"acct1"}, nil, valueobject.GenderFemale)
	require.NoError(t, err)

	err = svc.RunScrapeBatch(context.Background(), worker.ScrapeBatchPayload{
		JobID:         job.JobID.String(),
		TenantID:      string(testTenant),
		Platform:      string(valueobject.PlatformInstagram),
		Accounts:      []string{"acct1"},
		MaxPerAccount: DefaultPerAccount,
		TargetGender:  string(valueobject.GenderFemale),
		BatchIndex:    0,
		TotalBatches:  1,
	})
	require.NoError(t, err)

	page, err := results.Page(context.Background(), testTenant, job.JobID, 1, 10)
	require.NoError(t, err)
	// "Queen Alice" classifies female (keyword), kept; "Mr Bob" classifies
	// male (keyword), dropped under target=female inclusive filtering.
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "alice_king", page.Profiles[0].Username)

	stored, _ := jobs.GetByID(context.Background(), testTenant, job.JobID)
	assert.Equal(t, 2, stored.ProfilesScraped)

	// The barrier reached total_batches=1, so a second aggregate task was
	// enqueued beyond the one SubmitScrape already sent.
	assert.Len(t, enq.byType(worker.TypeScrapeAggregate), 2)
}

func TestRunScrapeAggregateMarksJobCompletedWithTotals(t *testing.T) {
	svc, jobs, results, _, _ := newTestJobService()

	job, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, []string{"acct1"}, nil, valueobject.GenderFemale)
	require.NoError(t, err)

	err = svc.RunScrapeBatch(context.Background(), worker.ScrapeBatchPayload{
		JobID:         job.JobID.String(),
		TenantID:      string(testTenant),
		Platform:      string(valueobject.PlatformInstagram),
		Accounts:      []string{"acct1"},
		MaxPerAccount: DefaultPerAccount,
		TargetGender:  string(valueobject.GenderFemale),
		BatchIndex:    0,
		TotalBatches:  1,
	})
	require.NoError(t, err)

	err = svc.RunScrapeAggregate(context.Background(), worker.ScrapeAggregatePayload{JobID: job.JobID.String(), TenantID: string(testTenant)})
	require.NoError(t, err)

	stored, _ := jobs.GetByID(context.Background(), testTenant, job.JobID)
	assert.Equal(t, valueobject.JobStatusCompleted, stored.Status)
	assert.Equal(t, 2, stored.TotalScraped)
	assert.Equal(t, 1, stored.TotalFiltered)

	page, err := svc.GetJobResults(context.Background(), testTenant, job.JobID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}

func TestGetJobResultsRejectsBeforeCompletion(t *testing.T) {
	svc, _, _, _, _ := newTestJobService()
	job, err := svc.SubmitScrape(context.Background(), testTenant, valueobject.PlatformInstagram, []string{"acct1"}, nil, valueobject.GenderFemale)
	require.NoError(t, err)

	_, err = svc.GetJobResults(context.Background(), testTenant, job.JobID, 1, 10)
	assert.Same(t, domainerrors.ErrJobNotComplete, err)
}

func TestGetJobStatusUnknownJobReturnsNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestJobService()
	_, err := svc.GetJobStatus(context.Background(), testTenant, uuid.MustParse("00000000-0000-0000-0000-000000000000"))
	assert.Same(t, domainerrors.ErrJobNotFound, err)
}
