package graphview

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// UnassignedGroup is the synthetic parent for roles with no function tag when
// the fallback grouping kicks in.
const UnassignedGroup = "unassigned"

// HierarchyTree is the flat tree view: a parent->children map plus the roots
// to start rendering from. Synthetic is set when no directional edges existed
// and the tree was grouped by primary function tag instead.
type HierarchyTree struct {
	Nodes     []string              `json:"nodes"`
	Edges     []models.Relationship `json:"edges"`
	Roots     []string              `json:"roots"`
	Children  map[string][]string   `json:"children"`
	Synthetic bool                  `json:"synthetic"`
}

// BuildTree constructs the hierarchy view from directional edges. When the
// edge set holds no directional type at all, roles are grouped under synthetic
// parents keyed by their primary function tag so the tree is never empty.
func BuildTree(roles []models.Role, edges []models.Relationship, primaryTags map[string]string) *HierarchyTree {
	nodes := make([]string, 0, len(roles))
	nodeSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		if !nodeSet[r.NormalizedName] {
			nodeSet[r.NormalizedName] = true
			nodes = append(nodes, r.NormalizedName)
		}
	}
	sort.Strings(nodes)

	children := make(map[string][]string)
	hasParent := make(map[string]bool)
	childSeen := make(map[string]bool)
	directional := false

	for i := range edges {
		parent, child, ok := edges[i].ParentChild()
		if !ok {
			continue
		}
		directional = true
		key := parent + "\x00" + child
		if childSeen[key] || parent == child {
			continue
		}
		childSeen[key] = true
		children[parent] = append(children[parent], child)
		hasParent[child] = true
		if !nodeSet[parent] {
			nodeSet[parent] = true
			nodes = insertSorted(nodes, parent)
		}
		if !nodeSet[child] {
			nodeSet[child] = true
			nodes = insertSorted(nodes, child)
		}
	}

	if !directional {
		return fallbackTree(nodes, edges, primaryTags)
	}

	roots := make([]string, 0)
	for _, n := range nodes {
		if !hasParent[n] {
			roots = append(roots, n)
		}
	}
	for p := range children {
		sort.Strings(children[p])
	}

	return &HierarchyTree{
		Nodes:    nodes,
		Edges:    edges,
		Roots:    roots,
		Children: children,
	}
}

// fallbackTree groups roles under synthetic parents named after each role's
// primary function tag.
func fallbackTree(nodes []string, edges []models.Relationship, primaryTags map[string]string) *HierarchyTree {
	children := make(map[string][]string)
	for _, n := range nodes {
		group, ok := primaryTags[n]
		if !ok || group == "" {
			group = UnassignedGroup
		}
		children[group] = append(children[group], n)
	}

	roots := make([]string, 0, len(children))
	for group := range children {
		sort.Strings(children[group])
		roots = append(roots, group)
	}
	sort.Strings(roots)

	return &HierarchyTree{
		Nodes:     nodes,
		Edges:     edges,
		Roots:     roots,
		Children:  children,
		Synthetic: true,
	}
}

// TreeNode is one node of a materialized tree.
type TreeNode struct {
	Name     string      `json:"name"`
	Children []*TreeNode `json:"children,omitempty"`
}

// Materialize expands the tree under root into nested nodes. A node already on
// the current root-to-node path is never re-descended into, so cycles become
// leaves instead of infinite recursion.
func (t *HierarchyTree) Materialize(root string) *TreeNode {
	return t.materialize(root, map[string]bool{})
}

func (t *HierarchyTree) materialize(name string, path map[string]bool) *TreeNode {
	node := &TreeNode{Name: name}
	path[name] = true
	for _, child := range t.Children[name] {
		if path[child] {
			continue
		}
		node.Children = append(node.Children, t.materialize(child, path))
	}
	delete(path, name)
	return node
}

// DescendantCount counts distinct nodes reachable below root by breadth-first
// traversal. Visited tracking keeps diamond shapes and cycles from inflating
// the count.
func (t *HierarchyTree) DescendantCount(root string) int {
	visited := map[string]bool{root: true}
	queue := []string{root}
	count := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range t.Children[current] {
			if visited[child] {
				continue
			}
			visited[child] = true
			count++
			queue = append(queue, child)
		}
	}
	return count
}

func insertSorted(sorted []string, v string) []string {
	i := sort.SearchStrings(sorted, v)
	sorted = append(sorted, "")
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = v
	return sorted
}
