package graphview

import (
	"testing"

	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildClusters_PartitionAndHub(t *testing.T) {
	roles := []models.Role{
		{NormalizedName: "manager", Disposition: models.DispositionSanctioned},
		{NormalizedName: "analyst", Disposition: models.DispositionSanctioned},
		{NormalizedName: "clerk", Disposition: models.DispositionTBD},
		{NormalizedName: "archivist", Disposition: models.DispositionRetire},
		{NormalizedName: "hermit"},
	}
	edges := []models.Relationship{
		rel("manager", "analyst", models.RelSupervises),
		rel("manager", "clerk", models.RelSupervises),
		rel("archivist", "librarian", models.RelSharedFunction),
	}

	clusters := BuildClusters(roles, edges)
	require.Len(t, clusters, 3)

	byHub := map[string]Cluster{}
	for _, c := range clusters {
		byHub[c.Hub] = c
	}

	manager, ok := byHub["manager"]
	require.True(t, ok, "manager has the highest edge count in its component")
	assert.Equal(t, []string{"analyst", "clerk", "manager"}, manager.Nodes)
	assert.Equal(t, 2, manager.EdgeCount)
	assert.Equal(t, map[string]int{
		models.DispositionSanctioned: 2,
		models.DispositionTBD:        1,
	}, manager.Dispositions)

	archivist, ok := byHub["archivist"]
	require.True(t, ok)
	assert.Equal(t, []string{"archivist", "librarian"}, archivist.Nodes)

	hermit, ok := byHub["hermit"]
	require.True(t, ok)
	assert.Equal(t, 1, hermit.NodeCount)
	assert.Equal(t, 0, hermit.EdgeCount)
}

func TestClusterRoots_Directional(t *testing.T) {
	roles := namedRoles("director", "manager", "analyst")
	edges := []models.Relationship{
		rel("director", "manager", models.RelSupervises),
		rel("manager", "analyst", models.RelSupervises),
	}

	clusters := BuildClusters(roles, edges)
	require.Len(t, clusters, 1)

	roots := ClusterRoots(clusters[0], edges, 5)
	require.Len(t, roots, 1)
	assert.Equal(t, "director", roots[0].Name)
	assert.Equal(t, []string{"manager"}, roots[0].Children)
	assert.Equal(t, 2, roots[0].DescendantCount)
}

func TestClusterRoots_SymmetricOnlyTakesTopN(t *testing.T) {
	roles := namedRoles("a", "b", "c", "d")
	edges := []models.Relationship{
		rel("a", "b", models.RelSharedFunction),
		rel("a", "c", models.RelSharedFunction),
		rel("a", "d", models.RelSharedFunction),
		rel("b", "c", models.RelSharedFunction),
	}

	clusters := BuildClusters(roles, edges)
	require.Len(t, clusters, 1)

	roots := ClusterRoots(clusters[0], edges, 2)
	require.Len(t, roots, 2)
	assert.Equal(t, "a", roots[0].Name)
	assert.Equal(t, "b", roots[1].Name)
	assert.Zero(t, roots[0].DescendantCount)
}

func TestBuildNeighborhood(t *testing.T) {
	edges := []models.Relationship{
		rel("director", "manager", models.RelSupervises),
		rel("manager", "analyst", models.RelSupervises),
		rel("manager", "clerk", models.RelSupervises),
		rel("manager", "planner", models.RelSharedFunction),
		rel("scheduler", "manager", models.RelSharedFunction),
		// duplicate peer through a second symmetric edge
		rel("planner", "manager", models.RelUsesTool),
		rel("analyst", "clerk", models.RelSupervises), // not touching manager
	}

	n := BuildNeighborhood("manager", edges)
	assert.Equal(t, []string{"director"}, n.Parents)
	assert.Equal(t, []string{"analyst", "clerk"}, n.Children)
	assert.Equal(t, []string{"planner", "scheduler"}, n.Peers)
}

func TestBuildGraph_FiltersByWeightAndSize(t *testing.T) {
	roles := []models.Role{
		{NormalizedName: "manager", Disposition: models.DispositionSanctioned, Category: "Ops"},
		{NormalizedName: "analyst"},
		{NormalizedName: "clerk"},
		{NormalizedName: "intern"},
	}
	heavy := rel("manager", "analyst", models.RelSharedFunction)
	heavy.Weight = 5
	light := rel("clerk", "intern", models.RelSharedFunction)
	light.Weight = 1
	edges := []models.Relationship{
		heavy,
		light,
		rel("manager", "clerk", models.RelSupervises), // default weight 1
	}

	g := BuildGraph(roles, edges, 0, 2)
	require.Len(t, g.Links, 1)
	assert.Equal(t, "manager", g.Links[0].Source)
	assert.Equal(t, 5, g.Links[0].Weight)

	// manager and analyst carry the surviving edge and sort first by degree
	g = BuildGraph(roles, edges, 2, 2)
	require.Len(t, g.Nodes, 2)
	assert.Equal(t, "analyst", g.Nodes[0].Name)
	assert.Equal(t, "manager", g.Nodes[1].Name)
	require.Len(t, g.Links, 1)
}
