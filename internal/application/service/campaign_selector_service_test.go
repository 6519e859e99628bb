package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
)

func seedUnusedProfiles(t *testing.T, repo *fakeProfileRepo, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("profile-%03d", i)
		err := repo.InsertGlobalProfile(context.Background(), &entity.GlobalProfile{
			ProfileID: id, Username: "user" + id, TenantID: string(testTenant),
		})
		require.NoError(t, err)
	}
}

func newTestSelector(numVAs int) (*CampaignSelectorService, *fakeProfileRepo, *fakeCampaignRepo, *fakeAssignmentRepo) {
	profiles := newFakeProfileRepo()
	campaigns := newFakeCampaignRepo()
	assignments := newFakeAssignmentRepo()
	tenantConfigs := newFakeTenantConfigRepo()
	if numVAs > 0 {
		n := numVAs
		_ = tenantConfigs.Upsert(context.Background(), &entity.TenantConfig{TenantID: string(testTenant), NumVAs: &n})
	}
	resolver := NewQueueCountResolver(tenantConfigs, nil, fakeLogger{})
	svc := NewCampaignSelectorService(campaigns, assignments, profiles, resolver, fakeLogger{})
	return svc, profiles, campaigns, assignments
}

// End-to-end scenario 1 (spec.md §8): pool of 10, N=2 M=3 -> total_selected=6.
func TestDailySelectHappyPathSelectsNTimesM(t *testing.T) {
	svc, profiles, _, assignments := newTestSelector(2)
	seedUnusedProfiles(t, profiles, 10)

	result, err := svc.DailySelect(context.Background(), testTenant, time.Time{}, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, result.TotalSelected)

	remaining, _ := profiles.SelectUnused(context.Background(), testTenant, 100)
	assert.Len(t, remaining, 4)

	placeholders, _ := assignments.PlaceholdersForCampaign(context.Background(), testTenant, result.CampaignID)
	assert.Len(t, placeholders, 6)
}

// End-to-end scenario 2: short pool of 4 -> total_selected=4.
func TestDailySelectShortPoolSelectsWhateverIsAvailable(t *testing.T) {
	svc, profiles, _, _ := newTestSelector(2)
	seedUnusedProfiles(t, profiles, 4)

	result, err := svc.DailySelect(context.Background(), testTenant, time.Time{}, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalSelected)
}

func TestDailySelectEmptyPoolReturnsNoProfilesAvailable(t *testing.T) {
	svc, _, _, _ := newTestSelector(2)
	_, err := svc.DailySelect(context.Background(), testTenant, time.Time{}, 3)
	assert.Same(t, domainerrors.ErrNoProfilesAvailable, err)
}

// Invariant 4 (spec.md §8): two consecutive DailySelect calls return
// disjoint profile id sets, because used flipped between them.
func TestConsecutiveDailySelectCallsAreDisjoint(t *testing.T) {
	svc, profiles, _, assignments := newTestSelector(1)
	seedUnusedProfiles(t, profiles, 6)

	first, err := svc.DailySelect(context.Background(), testTenant, time.Time{}, 3)
	require.NoError(t, err)
	second, err := svc.DailySelect(context.Background(), testTenant, time.Time{}, 3)
	require.NoError(t, err)

	firstRows, _ := assignments.PlaceholdersForCampaign(context.Background(), testTenant, first.CampaignID)
	secondRows, _ := assignments.PlaceholdersForCampaign(context.Background(), testTenant, second.CampaignID)

	seen := map[string]bool{}
	for _, a := range firstRows {
		seen[a.ProfileID] = true
	}
	for _, a := range secondRows {
		assert.False(t, seen[a.ProfileID], "profile %s selected twice across consecutive DailySelect calls", a.ProfileID)
	}
}
