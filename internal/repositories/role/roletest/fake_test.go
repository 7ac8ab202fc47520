package roletest

import (
	"context"
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tenant = "tenant-1"

func TestFake_IdentityUniqueness(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := fake.Create(ctx, tenant, models.CreateRoleRequest{Name: "Systems Engineer"})
	require.NoError(t, err)

	_, err = fake.Create(ctx, tenant, models.CreateRoleRequest{Name: "systems  ENGINEER"})
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))

	// Soft delete frees the identity for reuse.
	existing, err := fake.GetByName(ctx, tenant, "Systems Engineer")
	require.NoError(t, err)
	require.NoError(t, fake.Delete(ctx, tenant, existing.ID, false))

	_, err = fake.Create(ctx, tenant, models.CreateRoleRequest{Name: "Systems Engineer"})
	require.NoError(t, err)
}

func TestFake_RenameConflictAndMerge(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := fake.Create(ctx, tenant, models.CreateRoleRequest{Name: "Engineer"})
	require.NoError(t, err)
	_, err = fake.Create(ctx, tenant, models.CreateRoleRequest{Name: "Technical Lead"})
	require.NoError(t, err)

	_, err = fake.Rename(ctx, tenant, models.RenameRoleRequest{OldName: "Engineer", NewName: "Technical Lead"})
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))

	merged, err := fake.Rename(ctx, tenant, models.RenameRoleRequest{OldName: "Engineer", NewName: "Technical Lead", AllowMerge: true})
	require.NoError(t, err)
	assert.Equal(t, "technical lead", merged.NormalizedName)

	gone, err := fake.GetByName(ctx, tenant, "Engineer")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestFake_BatchAdjudicatePartialFailure(t *testing.T) {
	fake := NewFake()
	ctx := context.Background()

	_, err := fake.Create(ctx, tenant, models.CreateRoleRequest{Name: "Old Planner"})
	require.NoError(t, err)

	decisions := []models.AdjudicationDecision{
		{RoleName: "Scheduler", Status: "confirmed"},
		{RoleName: "Auditor", Status: "confirmed"},
		// collides with item 3's rename target
		{RoleName: "Chief Planner", Status: "confirmed"},
		{RoleName: "Old Planner", RenameTo: "Chief Planner"},
		{RoleName: "Clerk", Status: "pending"},
	}

	result, err := fake.BatchAdjudicate(ctx, tenant, decisions)
	require.NoError(t, err)

	assert.Equal(t, 5, result.Total)
	assert.Equal(t, 4, result.Processed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 2, result.Errors[0].Index)
	assert.Equal(t, "Chief Planner", result.Errors[0].Item)

	renamed, err := fake.GetByName(ctx, tenant, "Chief Planner")
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.Equal(t, models.SourceRename, renamed.Source)
}
