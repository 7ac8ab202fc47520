package graphview

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// GraphNode is one node of the visual graph.
type GraphNode struct {
	Name        string `json:"name"`
	Disposition string `json:"disposition,omitempty"`
	Category    string `json:"category,omitempty"`
	Degree      int    `json:"degree"`
}

// GraphLink is one rendered edge.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Weight int    `json:"weight"`
}

// Graph is the force-layout payload handed to the presentation boundary.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// BuildGraph filters the edge set down to a renderable size: edges below
// minWeight are dropped, then the maxNodes best-connected nodes are kept and
// links pruned to pairs that survived. Zero disables either limit.
func BuildGraph(roles []models.Role, edges []models.Relationship, maxNodes, minWeight int) *Graph {
	kept := make([]models.Relationship, 0, len(edges))
	degree := make(map[string]int)
	for i := range edges {
		weight := edges[i].Weight
		if weight == 0 {
			weight = 1
		}
		if minWeight > 0 && weight < minWeight {
			continue
		}
		kept = append(kept, edges[i])
		degree[edges[i].SourceRole]++
		degree[edges[i].TargetRole]++
	}

	names := make([]string, 0, len(roles))
	seen := make(map[string]bool, len(roles))
	roleByName := make(map[string]*models.Role, len(roles))
	for i := range roles {
		name := roles[i].NormalizedName
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
			roleByName[name] = &roles[i]
		}
	}
	for i := range kept {
		for _, name := range []string{kept[i].SourceRole, kept[i].TargetRole} {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	sort.Slice(names, func(i, j int) bool {
		if degree[names[i]] != degree[names[j]] {
			return degree[names[i]] > degree[names[j]]
		}
		return names[i] < names[j]
	})
	if maxNodes > 0 && len(names) > maxNodes {
		names = names[:maxNodes]
	}

	included := make(map[string]bool, len(names))
	nodes := make([]GraphNode, 0, len(names))
	for _, name := range names {
		included[name] = true
		node := GraphNode{Name: name, Degree: degree[name]}
		if r, ok := roleByName[name]; ok {
			node.Disposition = r.Disposition
			node.Category = r.Category
		}
		nodes = append(nodes, node)
	}

	links := make([]GraphLink, 0, len(kept))
	for i := range kept {
		e := &kept[i]
		if !included[e.SourceRole] || !included[e.TargetRole] {
			continue
		}
		weight := e.Weight
		if weight == 0 {
			weight = 1
		}
		links = append(links, GraphLink{
			Source: e.SourceRole,
			Target: e.TargetRole,
			Type:   e.Type,
			Weight: weight,
		})
	}

	return &Graph{Nodes: nodes, Links: links}
}
