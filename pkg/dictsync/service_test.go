package dictsync

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/fern/internal/repositories/role/roletest"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenant = "tenant-1"

func newService(t *testing.T) (*Service, *roletest.Fake) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	fake := roletest.NewFake()
	return NewService(fake, nil, logger), fake
}

func seedRole(t *testing.T, fake *roletest.Fake, req models.CreateRoleRequest) *models.Role {
	t.Helper()
	r, err := fake.Create(context.Background(), testTenant, req)
	require.NoError(t, err)
	return r
}

func TestSync_UnknownMergeMode(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{MergeMode: "merge-harder"})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}

func TestSync_MissingSnapshotFails(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{MergeMode: models.SyncModeAddNew})
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestSync_CreateIfMissingExports(t *testing.T) {
	svc, fake := newService(t)
	seedRole(t, fake, models.CreateRoleRequest{Name: "Planner", Notes: "local"})

	result, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{
		MergeMode:       models.SyncModeAddNew,
		CreateIfMissing: true,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Exported)
	assert.Equal(t, models.SnapshotFormatDictionary, result.Exported.Format)
	assert.Equal(t, 1, result.Exported.RoleCount)
	assert.Equal(t, "Planner", result.Exported.Roles[0].RoleName)
	assert.Zero(t, result.Added)
}

func TestSync_BadFormatFailsBeforeWrites(t *testing.T) {
	svc, fake := newService(t)

	_, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{
		MergeMode: models.SyncModeReplaceAll,
		Snapshot: &models.DictionarySnapshot{
			Format: "mystery.blob",
			Roles:  []models.SnapshotRole{{RoleName: "Planner"}},
		},
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	roles, err := fake.ListActive(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

func TestSync_AddNewLeavesExistingUntouched(t *testing.T) {
	svc, fake := newService(t)
	seedRole(t, fake, models.CreateRoleRequest{Name: "Planner", Notes: "keep these notes"})

	result, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{
		MergeMode: models.SyncModeAddNew,
		Snapshot: &models.DictionarySnapshot{
			Format: models.SnapshotFormatDictionary,
			Roles: []models.SnapshotRole{
				{RoleName: "Planner", Notes: "snapshot notes"},
				{RoleName: "Scheduler", Category: "Operations"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Skipped)

	planner, err := fake.GetByName(context.Background(), testTenant, "Planner")
	require.NoError(t, err)
	assert.Equal(t, "keep these notes", planner.Notes)

	scheduler, err := fake.GetByName(context.Background(), testTenant, "Scheduler")
	require.NoError(t, err)
	require.NotNil(t, scheduler)
	assert.Equal(t, "Operations", scheduler.Category)
	assert.Equal(t, models.SourceSync, scheduler.Source)
}

func TestSync_ReplaceAllRoundTrip(t *testing.T) {
	svc, fake := newService(t)
	seedRole(t, fake, models.CreateRoleRequest{
		Name:          "Quality Engineer",
		Category:      "Engineering",
		Description:   "Owns inspection",
		Aliases:       models.StringList{"QE"},
		IsDeliverable: false,
		Notes:         "baseline",
	})
	seedRole(t, fake, models.CreateRoleRequest{Name: "Audit Report", IsDeliverable: true})

	snapshot, err := svc.Export(context.Background(), testTenant)
	require.NoError(t, err)
	require.Equal(t, 2, snapshot.RoleCount)

	// Wipe into a fresh dictionary and replay the snapshot.
	svc2, fake2 := newService(t)
	result, err := svc2.Sync(context.Background(), testTenant, models.SyncRequest{
		MergeMode: models.SyncModeReplaceAll,
		Snapshot:  snapshot,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	restored, err := fake2.ListActive(context.Background(), testTenant)
	require.NoError(t, err)
	require.Len(t, restored, 2)

	qe, err := fake2.GetByName(context.Background(), testTenant, "Quality Engineer")
	require.NoError(t, err)
	require.NotNil(t, qe)
	assert.Equal(t, "Engineering", qe.Category)
	assert.Equal(t, "Owns inspection", qe.Description)
	assert.Equal(t, models.StringList{"QE"}, qe.Aliases)
	assert.Equal(t, "baseline", qe.Notes)

	report, err := fake2.GetByName(context.Background(), testTenant, "Audit Report")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, report.IsDeliverable)
}

func TestSync_ReplaceAllSupersedesLocal(t *testing.T) {
	svc, fake := newService(t)
	seedRole(t, fake, models.CreateRoleRequest{Name: "Old Timer"})

	result, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{
		MergeMode: models.SyncModeReplaceAll,
		Snapshot: &models.DictionarySnapshot{
			Format: models.SnapshotFormatDictionary,
			Roles:  []models.SnapshotRole{{RoleName: "New Blood"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)

	oldTimer, err := fake.GetByName(context.Background(), testTenant, "Old Timer")
	require.NoError(t, err)
	assert.Nil(t, oldTimer)

	active, err := fake.ListActive(context.Background(), testTenant)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "new blood", active[0].NormalizedName)
}

func TestSync_UpdateExistingPatchesAndSkips(t *testing.T) {
	svc, fake := newService(t)
	seedRole(t, fake, models.CreateRoleRequest{
		Name:     "Planner",
		Category: "Operations",
		Notes:    "local notes",
		Aliases:  models.StringList{"PL"},
	})

	result, err := svc.Sync(context.Background(), testTenant, models.SyncRequest{
		MergeMode: models.SyncModeUpdateExisting,
		Snapshot: &models.DictionarySnapshot{
			Format: models.SnapshotFormatDictionary,
			Roles: []models.SnapshotRole{
				// present locally: description set, category absent so kept
				{RoleName: "Planner", Description: "Plans the work", Aliases: models.StringList{"PL", "Planner II"}},
				// snapshot-only: skipped, not created
				{RoleName: "Stranger"},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	planner, err := fake.GetByName(context.Background(), testTenant, "Planner")
	require.NoError(t, err)
	assert.Equal(t, "Operations", planner.Category)
	assert.Equal(t, "Plans the work", planner.Description)
	assert.Equal(t, "local notes", planner.Notes)
	assert.Equal(t, models.StringList{"PL", "Planner II"}, planner.Aliases)

	stranger, err := fake.GetByName(context.Background(), testTenant, "Stranger")
	require.NoError(t, err)
	assert.Nil(t, stranger)
}
