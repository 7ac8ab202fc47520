package raci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMatrix(t *testing.T) {
	statements := []Statement{
		{RoleName: "Quality Engineer", Letter: Responsible, Document: "QMS-001"},
		{RoleName: "quality engineer", Letter: Responsible, Document: "QMS-002"},
		{RoleName: "Quality  Engineer", Letter: Accountable, Document: "QMS-001"},
		{RoleName: "Program Manager", Letter: Informed, Document: "QMS-001"},
		{RoleName: "Program Manager", Letter: "X", Document: "QMS-001"}, // unknown letter dropped
		{RoleName: "  ", Letter: Responsible},
	}

	m := BuildMatrix(statements, true)
	require.Equal(t, 2, m.RoleCount)
	require.Equal(t, 4, m.Total)

	// rows sorted by role name
	assert.Equal(t, "program manager", m.Rows[0].RoleName)
	assert.Equal(t, "quality engineer", m.Rows[1].RoleName)

	qe := m.Rows[1]
	assert.Equal(t, map[string]int{Responsible: 2, Accountable: 1}, qe.Counts)
	assert.Equal(t, 3, qe.Total)
	require.NotNil(t, qe.Documents)
	assert.Equal(t, map[string]int{Responsible: 1, Accountable: 1}, qe.Documents["QMS-001"])
	assert.Equal(t, map[string]int{Responsible: 1}, qe.Documents["QMS-002"])
}

func TestBuildMatrix_WithoutDocuments(t *testing.T) {
	statements := []Statement{
		{RoleName: "Planner", Letter: Consulted, Document: "DOC-1"},
	}

	m := BuildMatrix(statements, false)
	require.Len(t, m.Rows, 1)
	assert.Nil(t, m.Rows[0].Documents)
}

func TestScore_RoleNoun(t *testing.T) {
	s := Score(Candidate{Name: "Systems Engineer"})
	assert.Equal(t, StatusConfirmed, s.Status)
	assert.InDelta(t, 0.35, s.Confidence, 1e-9)
	assert.Equal(t, "systems engineer", s.RoleName)
}

func TestScore_Deliverable(t *testing.T) {
	s := Score(Candidate{Name: "Verification Report"})
	assert.Equal(t, StatusDeliverable, s.Status)
	assert.InDelta(t, 0.30, s.Confidence, 1e-9)
}

func TestScore_Bonuses(t *testing.T) {
	s := Score(Candidate{
		Name:           "Configuration Manager",
		MentionCount:   7,
		DocumentCount:  4,
		StatementCount: 3,
	})
	assert.Equal(t, StatusConfirmed, s.Status)
	assert.InDelta(t, 0.35+0.10+0.05+0.05, s.Confidence, 1e-9)
}

func TestScore_StatementsPromotePending(t *testing.T) {
	s := Score(Candidate{Name: "Gatekeeper", StatementCount: 2})
	assert.Equal(t, StatusConfirmed, s.Status)
	assert.InDelta(t, 0.05, s.Confidence, 1e-9)
}

func TestScore_PendingWithoutSignal(t *testing.T) {
	s := Score(Candidate{Name: "Gatekeeper", MentionCount: 1})
	assert.Equal(t, StatusPending, s.Status)
	assert.Zero(t, s.Confidence)
}

func TestScore_Cap(t *testing.T) {
	// All signals together stay under the cap; the cap guards future weights.
	s := Score(Candidate{
		Name:           "Audit Report",
		MentionCount:   50,
		DocumentCount:  10,
		StatementCount: 9,
	})
	assert.LessOrEqual(t, s.Confidence, 0.99)
	assert.Equal(t, StatusDeliverable, s.Status)
}
