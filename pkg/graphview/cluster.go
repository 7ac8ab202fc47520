package graphview

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// Cluster is a layer-0 summary card: one connected component with counts by
// disposition, named after its hub node.
type Cluster struct {
	Name         string         `json:"name"`
	Hub          string         `json:"hub"`
	Nodes        []string       `json:"nodes"`
	NodeCount    int            `json:"node_count"`
	EdgeCount    int            `json:"edge_count"`
	Dispositions map[string]int `json:"dispositions"`
}

// BuildClusters partitions the role graph into connected components with
// union-find, using every edge regardless of type.
func BuildClusters(roles []models.Role, edges []models.Relationship) []Cluster {
	ds := NewDisjointSet()
	for _, r := range roles {
		ds.Add(r.NormalizedName)
	}

	degree := make(map[string]int)
	for i := range edges {
		ds.Union(edges[i].SourceRole, edges[i].TargetRole)
		degree[edges[i].SourceRole]++
		degree[edges[i].TargetRole]++
	}

	dispositionByRole := make(map[string]string, len(roles))
	for _, r := range roles {
		dispositionByRole[r.NormalizedName] = r.Disposition
	}

	groups := ds.Groups()
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clusters := make([]Cluster, 0, len(groups))
	for _, key := range keys {
		members := groups[key]
		memberSet := make(map[string]bool, len(members))
		for _, m := range members {
			memberSet[m] = true
		}

		edgeCount := 0
		for i := range edges {
			if memberSet[edges[i].SourceRole] {
				edgeCount++
			}
		}

		// Hub: highest local edge count, lexicographic tie-break.
		hub := members[0]
		for _, m := range members[1:] {
			if degree[m] > degree[hub] {
				hub = m
			}
		}

		dispositions := make(map[string]int)
		for _, m := range members {
			if d, ok := dispositionByRole[m]; ok && d != "" {
				dispositions[d]++
			}
		}

		clusters = append(clusters, Cluster{
			Name:         hub,
			Hub:          hub,
			Nodes:        members,
			NodeCount:    len(members),
			EdgeCount:    edgeCount,
			Dispositions: dispositions,
		})
	}

	return clusters
}

// ClusterRoot is a layer-1 entry: a root node with its direct children and
// the size of the subtree below it.
type ClusterRoot struct {
	Name            string   `json:"name"`
	Children        []string `json:"children"`
	DescendantCount int      `json:"descendant_count"`
}

// ClusterRoots finds the layer-1 roots of one cluster: nodes with no incoming
// directional edge, or the topN best-connected nodes when the cluster has only
// symmetric edges.
func ClusterRoots(cluster Cluster, edges []models.Relationship, topN int) []ClusterRoot {
	memberSet := make(map[string]bool, len(cluster.Nodes))
	for _, m := range cluster.Nodes {
		memberSet[m] = true
	}

	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	degree := make(map[string]int)
	directional := false

	for i := range edges {
		if !memberSet[edges[i].SourceRole] && !memberSet[edges[i].TargetRole] {
			continue
		}
		degree[edges[i].SourceRole]++
		degree[edges[i].TargetRole]++

		parent, child, ok := edges[i].ParentChild()
		if !ok || parent == child {
			continue
		}
		directional = true
		children[parent] = append(children[parent], child)
		hasParent[child] = true
	}

	var rootNames []string
	if directional {
		for _, m := range cluster.Nodes {
			if !hasParent[m] {
				rootNames = append(rootNames, m)
			}
		}
		sort.Strings(rootNames)
	} else {
		// Symmetric-only cluster: surface the best-connected nodes.
		rootNames = append(rootNames, cluster.Nodes...)
		sort.Slice(rootNames, func(i, j int) bool {
			if degree[rootNames[i]] != degree[rootNames[j]] {
				return degree[rootNames[i]] > degree[rootNames[j]]
			}
			return rootNames[i] < rootNames[j]
		})
		if topN > 0 && len(rootNames) > topN {
			rootNames = rootNames[:topN]
		}
	}

	tree := &HierarchyTree{Children: children}
	roots := make([]ClusterRoot, 0, len(rootNames))
	for _, name := range rootNames {
		direct := append([]string(nil), children[name]...)
		sort.Strings(direct)
		roots = append(roots, ClusterRoot{
			Name:            name,
			Children:        dedupe(direct),
			DescendantCount: tree.DescendantCount(name),
		})
	}
	return roots
}

// Neighborhood is the layer-2 focused view of one node.
type Neighborhood struct {
	Node     string   `json:"node"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
	Peers    []string `json:"peers"`
}

// BuildNeighborhood collects a node's direct parents, children and peers,
// de-duplicated by identity. Symmetric and ownership edges contribute peers.
func BuildNeighborhood(node string, edges []models.Relationship) *Neighborhood {
	n := &Neighborhood{Node: node}
	seenParent := map[string]bool{}
	seenChild := map[string]bool{}
	seenPeer := map[string]bool{node: true}

	for i := range edges {
		e := &edges[i]
		if e.SourceRole != node && e.TargetRole != node {
			continue
		}

		if parent, child, ok := e.ParentChild(); ok {
			if child == node && parent != node && !seenParent[parent] {
				seenParent[parent] = true
				n.Parents = append(n.Parents, parent)
			}
			if parent == node && child != node && !seenChild[child] {
				seenChild[child] = true
				n.Children = append(n.Children, child)
			}
			continue
		}

		other := e.TargetRole
		if other == node {
			other = e.SourceRole
		}
		if !seenPeer[other] {
			seenPeer[other] = true
			n.Peers = append(n.Peers, other)
		}
	}

	sort.Strings(n.Parents)
	sort.Strings(n.Children)
	sort.Strings(n.Peers)
	return n
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	var last string
	for i, v := range sorted {
		if i == 0 || v != last {
			out = append(out, v)
		}
		last = v
	}
	return out
}
