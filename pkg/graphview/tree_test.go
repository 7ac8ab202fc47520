package graphview

import (
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rel(source, target, typ string) models.Relationship {
	return models.Relationship{SourceRole: source, TargetRole: target, Type: typ}
}

func namedRoles(names ...string) []models.Role {
	roles := make([]models.Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, models.Role{NormalizedName: n, Name: n})
	}
	return roles
}

func TestBuildTree_DirectionalRules(t *testing.T) {
	roles := namedRoles("systems engineer", "engineer", "manager", "analyst")
	edges := []models.Relationship{
		// systems engineer inherits from engineer: engineer is the parent
		rel("systems engineer", "engineer", models.RelInheritsFrom),
		// manager supervises analyst: manager is the parent
		rel("manager", "analyst", models.RelSupervises),
		// analyst reports to manager: same parent, duplicated child link dropped
		rel("analyst", "manager", models.RelReportsTo),
	}

	tree := BuildTree(roles, edges, nil)
	require.NotNil(t, tree)
	assert.False(t, tree.Synthetic)

	assert.ElementsMatch(t, []string{"engineer", "manager"}, tree.Roots)
	assert.Equal(t, []string{"systems engineer"}, tree.Children["engineer"])
	assert.Equal(t, []string{"analyst"}, tree.Children["manager"])
}

func TestBuildTree_FallbackGroupsByPrimaryTag(t *testing.T) {
	roles := namedRoles("planner", "scheduler", "auditor")
	edges := []models.Relationship{
		rel("planner", "scheduler", models.RelSharedFunction),
	}
	primaryTags := map[string]string{
		"planner":   "operations",
		"scheduler": "operations",
	}

	tree := BuildTree(roles, edges, primaryTags)
	require.NotNil(t, tree)
	assert.True(t, tree.Synthetic)

	assert.Equal(t, []string{"operations", UnassignedGroup}, tree.Roots)
	assert.Equal(t, []string{"planner", "scheduler"}, tree.Children["operations"])
	assert.Equal(t, []string{"auditor"}, tree.Children[UnassignedGroup])
}

func TestMaterialize_ToleratesCycles(t *testing.T) {
	roles := namedRoles("a", "b", "c")
	edges := []models.Relationship{
		rel("a", "b", models.RelSupervises),
		rel("b", "c", models.RelSupervises),
		rel("c", "a", models.RelSupervises), // back-edge
	}

	tree := BuildTree(roles, edges, nil)

	// The cycle leaves no parentless node; traversal from any member must
	// still terminate with the back-edge dropped.
	node := tree.Materialize("a")
	require.NotNil(t, node)
	require.Len(t, node.Children, 1)
	assert.Equal(t, "b", node.Children[0].Name)
	require.Len(t, node.Children[0].Children, 1)
	assert.Equal(t, "c", node.Children[0].Children[0].Name)
	assert.Empty(t, node.Children[0].Children[0].Children)
}

func TestDescendantCount_DiamondNotDoubleCounted(t *testing.T) {
	roles := namedRoles("top", "left", "right", "bottom")
	edges := []models.Relationship{
		rel("top", "left", models.RelSupervises),
		rel("top", "right", models.RelSupervises),
		rel("left", "bottom", models.RelSupervises),
		rel("right", "bottom", models.RelSupervises),
	}

	tree := BuildTree(roles, edges, nil)
	assert.Equal(t, 3, tree.DescendantCount("top"))
}
