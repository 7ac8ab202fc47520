package raci

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

func newAdjudicator(t *testing.T) (*Adjudicator, *roletest.Fake) {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	fake := roletest.NewFake()
	return NewAdjudicator(fake, logger), fake
}

func TestSuggest_SkipsKnownRolesAndSorts(t *testing.T) {
	adj, fake := newAdjudicator(t)
	_, err := fake.Create(context.Background(), testTenant, models.CreateRoleRequest{Name: "Systems Engineer"})
	require.NoError(t, err)

	suggestions, err := adj.Suggest(context.Background(), testTenant, []Candidate{
		{Name: "Systems Engineer", MentionCount: 10},     // already in dictionary
		{Name: "systems  engineer"},                      // same identity, still skipped
		{Name: "Gatekeeper"},                             // no signal
		{Name: "Test Report", DocumentCount: 3},          // deliverable + doc bonus
		{Name: "Program Manager"},                        // role noun
	})
	require.NoError(t, err)

	require.Len(t, suggestions, 3)
	assert.Equal(t, "test report", suggestions[0].RoleName)
	assert.InDelta(t, 0.40, suggestions[0].Confidence, 1e-9)
	assert.Equal(t, "program manager", suggestions[1].RoleName)
	assert.Equal(t, "gatekeeper", suggestions[2].RoleName)
	assert.Equal(t, StatusPending, suggestions[2].Status)
}

func TestAdjudicate_ApplyCommitsAboveThreshold(t *testing.T) {
	adj, fake := newAdjudicator(t)

	result, err := adj.Adjudicate(context.Background(), testTenant, []Candidate{
		{Name: "Program Manager"},  // 0.35, committed
		{Name: "Test Report"},      // 0.30, below threshold
		{Name: "Gatekeeper"},       // pending, 0.0
	}, true, 0.35)
	require.NoError(t, err)
	require.NotNil(t, result.Applied)
	assert.Equal(t, 1, result.Applied.Processed)

	pm, err := fake.GetByName(context.Background(), testTenant, "Program Manager")
	require.NoError(t, err)
	require.NotNil(t, pm)
	assert.Equal(t, models.DispositionSanctioned, pm.Disposition)
	assert.Equal(t, models.SourceAdjudication, pm.Source)

	report, err := fake.GetByName(context.Background(), testTenant, "Test Report")
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestAdjudicate_NoApplyLeavesDictionaryAlone(t *testing.T) {
	adj, fake := newAdjudicator(t)

	result, err := adj.Adjudicate(context.Background(), testTenant, []Candidate{
		{Name: "Program Manager"},
	}, false, 0)
	require.NoError(t, err)
	assert.Nil(t, result.Applied)
	require.Len(t, result.Suggestions, 1)

	roles, err := fake.ListActive(context.Background(), testTenant)
	require.NoError(t, err)
	assert.Empty(t, roles)
}
