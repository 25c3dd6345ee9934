package services

import (
	"context"
	"testing"
	"time"

	"github.com/filedock/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	quotas []models.StorageQuota
	err    error
}

func (r *fakeRows) All(_ context.Context) ([]models.StorageQuota, error) {
	return r.quotas, r.err
}

func TestQuotaResyncRepairsDrift(t *testing.T) {
	f := newFixture(10000)
	rec := f.upload(t, "counted.bin", "0123456789", "owner-1")
	require.Equal(t, int64(10), rec.SizeBytes)

	// Simulate drift: the ledger undercounts by 10 bytes.
	f.ledger.used = 0
	rows := &fakeRows{quotas: []models.StorageQuota{
		{OwnerID: "owner-1", UsedBytes: 0, LimitBytes: 10000},
	}}

	sweep := NewQuotaResyncService(0, rows, f.ledger, f.catalog, f.auditor)
	sweep.RunOnce(context.Background())

	assert.Equal(t, int64(10), f.ledger.used)
	entry := f.auditor.last()
	assert.Equal(t, models.AuditActionQuotaResync, entry.Action)
	assert.Contains(t, entry.Details, "corrected from 0 to 10")
}

func TestQuotaResyncSkipsAccurateRows(t *testing.T) {
	f := newFixture(10000)
	f.upload(t, "steady.bin", "12345", "owner-1")
	before := f.auditor.count()

	rows := &fakeRows{quotas: []models.StorageQuota{
		{OwnerID: "owner-1", UsedBytes: 5, LimitBytes: 10000},
	}}
	sweep := NewQuotaResyncService(0, rows, f.ledger, f.catalog, f.auditor)
	sweep.RunOnce(context.Background())

	assert.Equal(t, int64(5), f.ledger.used)
	assert.Equal(t, before, f.auditor.count(), "no audit entry when nothing drifted")
}

func TestQuotaResyncStopWaitsForSweep(t *testing.T) {
	f := newFixture(10000)
	f.upload(t, "swept.bin", "123", "owner-1")
	rows := &fakeRows{quotas: []models.StorageQuota{
		{OwnerID: "owner-1", UsedBytes: 0, LimitBytes: 10000},
	}}

	sweep := NewQuotaResyncService(time.Millisecond, rows, f.ledger, f.catalog, f.auditor)
	sweep.Start()
	time.Sleep(10 * time.Millisecond)
	sweep.Stop()

	// Stop joins the loop, so no sweep can touch the collaborators
	// after it returns.
	select {
	case <-sweep.done:
	default:
		t.Fatal("Stop returned before the sweep loop exited")
	}
}

func TestQuotaResyncStopWhenDisabled(t *testing.T) {
	f := newFixture(10000)
	sweep := NewQuotaResyncService(0, &fakeRows{}, f.ledger, f.catalog, f.auditor)
	sweep.Start()

	assert.NotPanics(t, sweep.Stop)
}

func TestQuotaResyncCountsSoftDeletedFiles(t *testing.T) {
	f := newFixture(10000)
	ctx := context.Background()
	rec := f.upload(t, "trashed.bin", "abcdef", "owner-1")
	require.NoError(t, f.svc.SoftDelete(ctx, rec.ID, "owner-1", testMeta))

	// Trash still occupies quota, so the aggregate includes it.
	f.ledger.used = 0
	rows := &fakeRows{quotas: []models.StorageQuota{
		{OwnerID: "owner-1", UsedBytes: 0, LimitBytes: 10000},
	}}
	sweep := NewQuotaResyncService(0, rows, f.ledger, f.catalog, f.auditor)
	sweep.RunOnce(ctx)

	assert.Equal(t, int64(6), f.ledger.used)
}
