package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/entity"
	"github.com/AI-Venture-Studio/Click-Creators-Scraper-Server/internal/domain/tenant"
)

func TestIngestBatchDropsInvalidAndDedupesAgainstGlobalPool(t *testing.T) {
	profiles := newFakeProfileRepo()
	svc := NewProfileStoreService(profiles, fakeLogger{})

	// pre-existing profile already in the global pool
	require.NoError(t, profiles.InsertGlobalProfile(context.Background(), &entity.GlobalProfile{
		ProfileID: "p1", Username: "alice", TenantID: string(testTenant),
	}))

	result, err := svc.IngestBatch(context.Background(), testTenant, []*entity.CanonicalProfile{
		{ID: "p1", Username: "alice"}, // already in global pool -> skipped for global, still raw
		{ID: "p2", Username: "bob"},   // new -> raw + global
		{ID: "", Username: "nouser"},  // missing id -> dropped entirely
		{ID: "p3", Username: ""},      // missing username -> dropped entirely
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.InsertedRaw) // p1, p2
	assert.Equal(t, 1, result.AddedGlobal) // p2 only
	assert.Equal(t, 1, result.Skipped)     // p1 already present

	raw, _ := profiles.ExistingProfileIDs(context.Background(), testTenant, []string{"p1", "p2"})
	assert.Len(t, raw, 2)
}

// Running the exact same batch twice must not double-add to the global
// pool: the second run's existence probe finds everything already
// present, so every row counts as skipped rather than added.
func TestIngestBatchIsIdempotentAcrossRepeatedRuns(t *testing.T) {
	profiles := newFakeProfileRepo()
	svc := NewProfileStoreService(profiles, fakeLogger{})

	batch := []*entity.CanonicalProfile{
		{ID: "p1", Username: "alice"},
		{ID: "p2", Username: "bob"},
	}

	first, err := svc.IngestBatch(context.Background(), testTenant, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, first.InsertedRaw)
	assert.Equal(t, 2, first.AddedGlobal)
	assert.Equal(t, 0, first.Skipped)

	second, err := svc.IngestBatch(context.Background(), testTenant, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, second.InsertedRaw) // raw history still records every scrape event
	assert.Equal(t, 0, second.AddedGlobal) // global pool untouched the second time
	assert.Equal(t, 2, second.Skipped)

	unused, err := profiles.SelectUnused(context.Background(), testTenant, 10)
	require.NoError(t, err)
	assert.Len(t, unused, 2) // no duplicate global rows were created
}

func TestIngestBatchEmptyInputIsANoop(t *testing.T) {
	profiles := newFakeProfileRepo()
	svc := NewProfileStoreService(profiles, fakeLogger{})

	result, err := svc.IngestBatch(context.Background(), testTenant, nil)
	require.NoError(t, err)
	assert.Equal(t, &IngestResult{}, result)
}

func TestIngestBatchTenantIsolation(t *testing.T) {
	profiles := newFakeProfileRepo()
	svc := NewProfileStoreService(profiles, fakeLogger{})

	const otherTenant = tenant.ID("appZYXWVUTS98765")

	_, err := svc.IngestBatch(context.Background(), testTenant, []*entity.CanonicalProfile{{ID: "p1", Username: "alice"}})
	require.NoError(t, err)

	// same profile id under a different tenant is not deduped against the
	// first tenant's global pool.
	result, err := svc.IngestBatch(context.Background(), otherTenant, []*entity.CanonicalProfile{{ID: "p1", Username: "alice"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AddedGlobal)
	assert.Equal(t, 0, result.Skipped)
}
