package graphview

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisjointSet_Basic(t *testing.T) {
	ds := NewDisjointSet()
	ds.Union("a", "b")
	ds.Union("b", "c")
	ds.Add("d")

	assert.Equal(t, ds.Find("a"), ds.Find("c"))
	assert.NotEqual(t, ds.Find("a"), ds.Find("d"))

	groups := ds.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "b", "c"}, groups["a"])
	assert.Equal(t, []string{"d"}, groups["d"])
}

func TestDisjointSet_OrderIndependent(t *testing.T) {
	edges := [][2]string{
		{"a", "b"}, {"b", "c"}, {"d", "e"}, {"e", "f"}, {"g", "h"},
		{"c", "a"}, {"f", "d"},
	}

	build := func(order []int) map[string][]string {
		ds := NewDisjointSet()
		for _, idx := range order {
			ds.Union(edges[idx][0], edges[idx][1])
		}
		return ds.Groups()
	}

	base := build([]int{0, 1, 2, 3, 4, 5, 6})

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		order := rng.Perm(len(edges))
		assert.Equal(t, base, build(order))
	}
}
