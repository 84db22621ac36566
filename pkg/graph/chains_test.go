package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

func dependsOn(pairs ...[2]string) map[string][]catalog.Edge {
	var edges []catalog.Edge
	for i, p := range pairs {
		// earlier pairs score higher so adjacency keeps declaration order
		edges = append(edges, catalog.Edge{From: p[0], To: p[1], Type: catalog.EdgeDependsOn, Score: float64(100 - i)})
	}
	return adjacency(edges)
}

func TestChains(t *testing.T) {
	tests := []struct {
		name     string
		adj      map[string][]catalog.Edge
		expected [][]string
	}{
		{
			name:     "empty",
			adj:      map[string][]catalog.Edge{},
			expected: [][]string{},
		},
		{
			name: "branching paths sorted by length then lexically",
			adj: dependsOn(
				[2]string{"a", "b"},
				[2]string{"b", "c"},
				[2]string{"a", "d"},
			),
			expected: [][]string{{"a", "b", "c"}, {"a", "d"}},
		},
		{
			name: "cycle terminates the path",
			adj: dependsOn(
				[2]string{"a", "b"},
				[2]string{"b", "c"},
				[2]string{"c", "b"},
			),
			expected: [][]string{{"a", "b", "c"}},
		},
		{
			name: "pure cycle has no root",
			adj: dependsOn(
				[2]string{"x", "y"},
				[2]string{"y", "x"},
			),
			expected: [][]string{},
		},
		{
			name: "multiple roots",
			adj: dependsOn(
				[2]string{"r2", "m"},
				[2]string{"r1", "m"},
				[2]string{"m", "z"},
			),
			expected: [][]string{{"r1", "m", "z"}, {"r2", "m", "z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chains(tt.adj))
		})
	}
}

func TestChainsBoundedLength(t *testing.T) {
	var pairs [][2]string
	ids := []string{"n00", "n01", "n02", "n03", "n04", "n05", "n06", "n07", "n08", "n09", "n10", "n11"}
	for i := 0; i+1 < len(ids); i++ {
		pairs = append(pairs, [2]string{ids[i], ids[i+1]})
	}

	got := chains(dependsOn(pairs...))

	assert.Equal(t, [][]string{ids[:maxChainLength]}, got)
}

func TestChainsBranchingLimit(t *testing.T) {
	var pairs [][2]string
	for _, target := range []string{"t1", "t2", "t3", "t4", "t5", "t6"} {
		pairs = append(pairs, [2]string{"root", target})
	}

	got := chains(dependsOn(pairs...))

	assert.Len(t, got, maxBranching)
	for _, path := range got {
		assert.Len(t, path, 2)
		assert.NotContains(t, []string{"t5", "t6"}, path[1])
	}
}

func TestChainsCapped(t *testing.T) {
	var pairs [][2]string
	for i := 0; i < 25; i++ {
		pairs = append(pairs, [2]string{string(rune('A'+i)) + "-root", "sink"})
	}

	got := chains(dependsOn(pairs...))

	assert.Len(t, got, maxChains)
	assert.Equal(t, []string{"A-root", "sink"}, got[0])
}

func TestChainsRootsNeedOutgoingEdges(t *testing.T) {
	var pairs [][2]string
	for i := 0; i < maxRoots; i++ {
		pairs = append(pairs, [2]string{fmt.Sprintf("r%02d", i), "sink"})
	}
	adj := dependsOn(pairs...)
	// sorts ahead of every real root but has nowhere to go
	adj["a-isolated"] = nil

	got := chains(adj)

	assert.Len(t, got, maxChains)
	for _, path := range got {
		assert.NotEqual(t, "a-isolated", path[0])
		assert.Len(t, path, 2)
	}
	assert.Equal(t, []string{"r00", "sink"}, got[0])
}

func TestRelated(t *testing.T) {
	got := related([]catalog.Edge{
		{From: "a", To: "b", Type: catalog.EdgeDependsOn},
		{From: "a", To: "b", Type: catalog.EdgePrecedes},
		{From: "c", To: "a", Type: catalog.EdgeComplements},
	})

	assert.Equal(t, map[string][]string{
		"a": {"b", "c"},
		"b": {"a"},
		"c": {"a"},
	}, got)
}
