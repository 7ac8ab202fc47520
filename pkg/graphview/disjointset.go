package graphview

import "sort"

// DisjointSet is a union-find structure over role names. Find uses path
// compression and Union uses rank, so the resulting partition is independent
// of the order edges are processed in.
type DisjointSet struct {
	parent map[string]string
	rank   map[string]int
}

// NewDisjointSet creates an empty disjoint set
func NewDisjointSet() *DisjointSet {
	return &DisjointSet{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// Add registers x as a singleton if it is not already tracked.
func (d *DisjointSet) Add(x string) {
	if _, ok := d.parent[x]; !ok {
		d.parent[x] = x
		d.rank[x] = 0
	}
}

// Find returns the representative of x's set, adding x if unseen.
func (d *DisjointSet) Find(x string) string {
	d.Add(x)
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	for d.parent[x] != root {
		d.parent[x], x = root, d.parent[x]
	}
	return root
}

// Union merges the sets containing a and b.
func (d *DisjointSet) Union(a, b string) {
	ra, rb := d.Find(a), d.Find(b)
	if ra == rb {
		return
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		// Equal ranks: attach the lexicographically larger root under the
		// smaller one so the partition is stable across processing orders.
		if ra > rb {
			ra, rb = rb, ra
		}
		d.parent[rb] = ra
		d.rank[ra]++
	}
}

// Groups returns the sets, each sorted, keyed by a canonical member (the
// lexicographically smallest element of the set).
func (d *DisjointSet) Groups() map[string][]string {
	byRoot := make(map[string][]string)
	for x := range d.parent {
		root := d.Find(x)
		byRoot[root] = append(byRoot[root], x)
	}

	groups := make(map[string][]string, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		groups[members[0]] = members
	}
	return groups
}
