package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	domainerrors "github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/errors"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

func newTestDistributor(numVAs int) (*DistributorService, *fakeCampaignRepo, *fakeAssignmentRepo) {
	campaigns := newFakeCampaignRepo()
	assignments := newFakeAssignmentRepo()
	tenantConfigs := newFakeTenantConfigRepo()
	n := numVAs
	_ = tenantConfigs.Upsert(context.Background(), &entity.TenantConfig{TenantID: string(testTenant), NumVAs: &n})
	resolver := NewQueueCountResolver(tenantConfigs, nil, fakeLogger{})
	return NewDistributorService(campaigns, assignments, resolver, fakeLogger{}), campaigns, assignments
}

func seedPlaceholders(t *testing.T, assignments *fakeAssignmentRepo, campaignID uuid.UUID, n int) {
	t.Helper()
	var rows []*entity.Assignment
	for i := 0; i < n; i++ {
		rows = append(rows, &entity.Assignment{
			AssignmentID: uuid.New(),
			CampaignID:   campaignID,
			ProfileID:    uuid.NewString(),
			State:        valueobject.AssignmentPending,
			TenantID:     string(testTenant),
		})
	}
	require.NoError(t, assignments.InsertPlaceholders(context.Background(), rows))
}

// End-to-end scenario 1: N=2, M=3, exactly 6 placeholders -> tables_used=2.
func TestDistributeExactFitPacksAllAndReportsTablesUsed(t *testing.T) {
	svc, campaigns, assignments := newTestDistributor(2)
	campaignID := uuid.New()
	require.NoError(t, campaigns.Create(context.Background(), &entity.Campaign{CampaignID: campaignID, TenantID: string(testTenant)}))
	seedPlaceholders(t, assignments, campaignID, 6)

	result, err := svc.Distribute(context.Background(), testTenant, campaignID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TablesUsed)
	assert.Equal(t, 6, result.TotalDistributed)

	packed, _ := assignments.PackedForCampaign(context.Background(), testTenant, campaignID)
	assert.Len(t, packed, 6)
	assertInvariant1(t, packed)
}

// End-to-end scenario 2: N=2, M=3, short pool of 4 -> q=1 gets 3, q=2 gets 1.
func TestDistributeShortPoolPacksPartialSecondQueue(t *testing.T) {
	svc, campaigns, assignments := newTestDistributor(2)
	campaignID := uuid.New()
	require.NoError(t, campaigns.Create(context.Background(), &entity.Campaign{CampaignID: campaignID, TenantID: string(testTenant)}))
	seedPlaceholders(t, assignments, campaignID, 4)

	result, err := svc.Distribute(context.Background(), testTenant, campaignID, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TablesUsed)
	assert.Equal(t, 4, result.TotalDistributed)

	packed, _ := assignments.PackedForCampaign(context.Background(), testTenant, campaignID)
	q1, q2 := 0, 0
	for _, a := range packed {
		switch a.QueueIndex {
		case 1:
			q1++
		case 2:
			q2++
		}
	}
	assert.Equal(t, 3, q1)
	assert.Equal(t, 1, q2)
}

// Boundary behavior: unassigned count > N*M leaves the overflow at
// queue_index=0.
func TestDistributeOverflowLeavesRemainderAsPlaceholders(t *testing.T) {
	svc, campaigns, assignments := newTestDistributor(2)
	campaignID := uuid.New()
	require.NoError(t, campaigns.Create(context.Background(), &entity.Campaign{CampaignID: campaignID, TenantID: string(testTenant)}))
	seedPlaceholders(t, assignments, campaignID, 8) // N*M = 6

	result, err := svc.Distribute(context.Background(), testTenant, campaignID, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, result.TotalDistributed)
	assert.Equal(t, 2, result.TablesUsed)

	remaining, _ := assignments.PlaceholdersForCampaign(context.Background(), testTenant, campaignID)
	assert.Len(t, remaining, 2)
}

func TestDistributeRejectsAlreadyDistributed(t *testing.T) {
	svc, campaigns, assignments := newTestDistributor(2)
	campaignID := uuid.New()
	require.NoError(t, campaigns.Create(context.Background(), &entity.Campaign{CampaignID: campaignID, TenantID: string(testTenant)}))
	seedPlaceholders(t, assignments, campaignID, 6)

	_, err := svc.Distribute(context.Background(), testTenant, campaignID, 3)
	require.NoError(t, err)

	_, err = svc.Distribute(context.Background(), testTenant, campaignID, 3)
	assert.Same(t, domainerrors.ErrAlreadyDistributed, err)
}

func TestDistributeUnknownCampaignReturnsNotFound(t *testing.T) {
	svc, _, _ := newTestDistributor(2)
	_, err := svc.Distribute(context.Background(), testTenant, uuid.New(), 3)
	assert.Same(t, domainerrors.ErrCampaignNotFound, err)
}

// assertInvariant1 checks queue_index=0 <=> position=0 (spec.md §8
// invariant 1) over a packed assignment set, where every row has
// queue_index>0 by construction of PackedForCampaign.
func assertInvariant1(t *testing.T, packed []*entity.Assignment) {
	t.Helper()
	for _, a := range packed {
		if a.QueueIndex == 0 {
			assert.Equal(t, 0, a.Position)
		} else {
			assert.NotEqual(t, 0, a.Position)
		}
	}
}
