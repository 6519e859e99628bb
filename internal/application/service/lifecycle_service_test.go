package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/valueobject"
)

func newTestLifecycle(numVAs int) (*LifecycleService, *fakeCampaignRepo, *fakeAssignmentRepo, *fakeProfileRepo, *fakeRecordStore) {
	campaigns := newFakeCampaignRepo()
	assignments := newFakeAssignmentRepo()
	profiles := newFakeProfileRepo()
	recordStore := newFakeRecordStore()
	tenantConfigs := newFakeTenantConfigRepo()
	n := numVAs
	_ = tenantConfigs.Upsert(context.Background(), &entity.TenantConfig{TenantID: string(testTenant), NumVAs: &n})
	resolver := NewQueueCountResolver(tenantConfigs, recordStore, fakeLogger{})
	return NewLifecycleService(campaigns, assignments, profiles, recordStore, resolver, fakeLogger{}), campaigns, assignments, profiles, recordStore
}

// End-to-end scenario 6: an assignment followed 8 days ago ages into
// unfollow; the test then sets it completed directly, standing in for an
// operator edit reconciled by SyncIn, with updated_at 25h in the past, and
// DeleteCompletedAfterDelay removes the local row.
func TestLifecycleAgingScenario(t *testing.T) {
	lifecycle, _, assignments, _, recordStore := newTestLifecycle(1)

	assignmentID := uuid.New()
	assignedAt := time.Now().UTC().Add(-8 * 24 * time.Hour)
	assignment := &entity.Assignment{
		AssignmentID: assignmentID, CampaignID: uuid.New(), ProfileID: "p1", Username: "u1",
		QueueIndex: 1, Position: 1, State: valueobject.AssignmentFollowed, AssignedAt: assignedAt, TenantID: string(testTenant),
	}
	require.NoError(t, assignments.InsertPlaceholders(context.Background(), []*entity.Assignment{assignment}))
	require.NoError(t, assignments.UpdateSlot(context.Background(), assignment))

	marked, err := lifecycle.MarkUnfollowDue(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	current, _ := assignments.ByTenantProfileQueue(context.Background(), testTenant, "p1", 1)
	assert.Equal(t, valueobject.AssignmentUnfollow, current.State)

	require.NoError(t, assignments.UpdateState(context.Background(), testTenant, assignmentID, valueobject.AssignmentCompleted, time.Now().UTC().Add(-25*time.Hour)))
	require.NoError(t, recordStore.PushChunk(context.Background(), string(testTenant), 1, nil))

	deleted, err := lifecycle.DeleteCompletedAfterDelay(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, ok := assignments.assignments[assignmentID]
	assert.False(t, ok)
}

func TestMarkUnfollowDueUnionsPendingAndFollowed(t *testing.T) {
	lifecycle, _, assignments, _, _ := newTestLifecycle(1)
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)

	pending := &entity.Assignment{AssignmentID: uuid.New(), ProfileID: "p-pending", State: valueobject.AssignmentPending, AssignedAt: old, TenantID: string(testTenant)}
	followed := &entity.Assignment{AssignmentID: uuid.New(), ProfileID: "p-followed", State: valueobject.AssignmentFollowed, AssignedAt: old, TenantID: string(testTenant)}
	require.NoError(t, assignments.InsertPlaceholders(context.Background(), []*entity.Assignment{pending, followed}))

	marked, err := lifecycle.MarkUnfollowDue(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)
}

func TestPurgeOldTelemetryNeverTouchesGlobalProfile(t *testing.T) {
	lifecycle, campaigns, assignments, profiles, _ := newTestLifecycle(1)
	old := time.Now().UTC().Add(-9 * 24 * time.Hour)

	require.NoError(t, profiles.InsertRawProfile(context.Background(), &entity.RawProfile{ProfileID: "r1", ScrapedAt: old, TenantID: string(testTenant)}))
	require.NoError(t, profiles.InsertGlobalProfile(context.Background(), &entity.GlobalProfile{ProfileID: "g1", CreatedAt: old, TenantID: string(testTenant)}))
	require.NoError(t, campaigns.Create(context.Background(), &entity.Campaign{CampaignID: uuid.New(), CampaignDate: old, TenantID: string(testTenant)}))
	require.NoError(t, assignments.InsertPlaceholders(context.Background(), []*entity.Assignment{{AssignmentID: uuid.New(), AssignedAt: old, TenantID: string(testTenant)}}))

	total, err := lifecycle.PurgeOldTelemetry(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	remaining, _ := profiles.SelectUnused(context.Background(), testTenant, 100)
	assert.Len(t, remaining, 1, "GlobalProfile rows must survive PurgeOldTelemetry")
}
