package hierarchy

import (
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_EmptySheet(t *testing.T) {
	_, err := Parse(nil)
	require.Error(t, err)

	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "rows", parseErr.Missing)
}

func TestParse_NoResources(t *testing.T) {
	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Intake", Activity: "Review submissions"},
		{RowNumber: 2, MapPath: "Intake"},
	}

	_, err := Parse(rows)
	require.Error(t, err)

	var parseErr *models.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "resources", parseErr.Missing)
}

func TestParse_HierarchyModeChain(t *testing.T) {
	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Systems Engineer; Engineer; Technical Lead"},
	}

	result, err := Parse(rows)
	require.NoError(t, err)

	assert.Equal(t, ModeHierarchy, result.Mode)
	require.Len(t, result.InheritsEdges, 2)
	assert.Equal(t, InheritsFrom{Child: "Systems Engineer", Parent: "Engineer"}, result.InheritsEdges[0])
	assert.Equal(t, InheritsFrom{Child: "Systems Engineer", Parent: "Technical Lead"}, result.InheritsEdges[1])
	assert.Empty(t, result.SupervisesEdges)
	assert.Empty(t, result.SharedEdges)

	require.Len(t, result.Roles, 3)
	assert.Equal(t, "systems engineer", result.Roles[0].NormalizedName)
}

func TestParse_HierarchyModeIgnoresSupplierCustomer(t *testing.T) {
	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Manager; Director", Supplier: "Vendor", Customer: "Client"},
	}

	result, err := Parse(rows)
	require.NoError(t, err)

	// Supplier/customer cells are false positives on hierarchy exports.
	assert.Empty(t, result.SupervisesEdges)
	assert.Len(t, result.Roles, 2)
}

func TestParse_ProcessModeEdges(t *testing.T) {
	rows := []SheetRow{
		{
			RowNumber: 3,
			MapPath:   "Order Fulfillment",
			Resources: "Planner; Scheduler",
			Supplier:  "Account Manager",
			Customer:  "Warehouse Lead",
			Activity:  "Build weekly schedule",
		},
	}

	result, err := Parse(rows)
	require.NoError(t, err)
	assert.Equal(t, ModeProcess, result.Mode)

	require.Len(t, result.SharedEdges, 1)
	assert.Equal(t, SharedFunction{A: "Planner", B: "Scheduler", Activity: "Build weekly schedule"}, result.SharedEdges[0])

	require.Len(t, result.SupervisesEdges, 4)
	assert.Contains(t, result.SupervisesEdges, Supervises{Parent: "Account Manager", Child: "Planner"})
	assert.Contains(t, result.SupervisesEdges, Supervises{Parent: "Account Manager", Child: "Scheduler"})
	assert.Contains(t, result.SupervisesEdges, Supervises{Parent: "Planner", Child: "Warehouse Lead"})
	assert.Contains(t, result.SupervisesEdges, Supervises{Parent: "Scheduler", Child: "Warehouse Lead"})

	assert.Empty(t, result.InheritsEdges)
	assert.Len(t, result.Roles, 4)
}

func TestParse_DeduplicatesRolesAcrossRows(t *testing.T) {
	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Intake", Resources: "Analyst", Activity: "Screen requests"},
		{RowNumber: 2, MapPath: "Intake", Resources: "analyst ", Activity: "Log decisions"},
		{RowNumber: 3, MapPath: "Intake", Resources: "ANALYST", Activity: "Screen requests"},
	}

	result, err := Parse(rows)
	require.NoError(t, err)

	require.Len(t, result.Roles, 1)
	analyst := result.Roles[0]
	assert.Equal(t, "analyst", analyst.NormalizedName)
	assert.Equal(t, "Analyst", analyst.Name)
	assert.Equal(t, []string{"Screen requests", "Log decisions"}, analyst.Descriptions)
	assert.Equal(t, []int{1, 2, 3}, analyst.SourceRows)
}

func TestParse_DeduplicatesEdges(t *testing.T) {
	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Lead; Engineer"},
		{RowNumber: 2, MapPath: "Roles Hierarchy", Resources: "lead; engineer"},
	}

	result, err := Parse(rows)
	require.NoError(t, err)
	assert.Len(t, result.InheritsEdges, 1)
}

func TestParse_SelfReferenceSkipped(t *testing.T) {
	rows := []SheetRow{
		{RowNumber: 1, MapPath: "Roles Hierarchy", Resources: "Engineer; engineer"},
	}

	result, err := Parse(rows)
	require.NoError(t, err)
	assert.Empty(t, result.InheritsEdges)
	assert.Len(t, result.Roles, 1)
}

func TestParse_OrgColumnsBecomeTags(t *testing.T) {
	rows := []SheetRow{
		{
			RowNumber: 1,
			MapPath:   "Roles Hierarchy",
			Resources: "Quality Engineer",
			OrgLevel1: "Engineering",
			OrgLevel2: "Quality Assurance",
		},
	}

	result, err := Parse(rows)
	require.NoError(t, err)

	require.Len(t, result.Tags, 2)
	assert.Equal(t, TagAssignment{RoleName: "quality engineer", CategoryValue: "Engineering"}, result.Tags[0])
	assert.Equal(t, TagAssignment{RoleName: "quality engineer", CategoryValue: "Quality Assurance", ParentValue: "Engineering"}, result.Tags[1])

	assert.Equal(t, "Engineering", result.Roles[0].Category)
}

func TestSplitNames(t *testing.T) {
	tests := []struct {
		name     string
		cell     string
		expected []string
	}{
		{name: "semicolons", cell: "A; B; C", expected: []string{"A", "B", "C"}},
		{name: "commas", cell: "A, B", expected: []string{"A", "B"}},
		{name: "newlines", cell: "A\nB", expected: []string{"A", "B"}},
		{name: "blank entries dropped", cell: "A;;  ; B", expected: []string{"A", "B"}},
		{name: "empty", cell: "   ", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitNames(tt.cell))
		})
	}
}

func TestCategorySlug(t *testing.T) {
	assert.Equal(t, "quality-assurance", categorySlug("Quality Assurance"))
	assert.Equal(t, "r-d", categorySlug("  R&D "))
	assert.Equal(t, "ops", categorySlug("Ops!"))
}
