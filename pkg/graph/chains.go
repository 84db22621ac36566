package graph

import (
	"sort"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// adjacency indexes directed edges by source in pruning order
func adjacency(edges []catalog.Edge) map[string][]catalog.Edge {
	adj := map[string][]catalog.Edge{}
	for _, e := range edges {
		if e.Type.Directed() {
			adj[e.From] = append(adj[e.From], e)
		}
	}
	for _, out := range adj {
		sortOutgoing(out)
	}
	return adj
}

// related builds the symmetric neighbor index over every kept edge
func related(edges []catalog.Edge) map[string][]string {
	sets := map[string]map[string]bool{}
	add := func(from, to string) {
		if sets[from] == nil {
			sets[from] = map[string]bool{}
		}
		sets[from][to] = true
	}
	for _, e := range edges {
		add(e.From, e.To)
		add(e.To, e.From)
	}

	out := make(map[string][]string, len(sets))
	for id, set := range sets {
		neighbors := make([]string, 0, len(set))
		for n := range set {
			neighbors = append(neighbors, n)
		}
		sort.Strings(neighbors)
		out[id] = neighbors
	}
	return out
}

// chains enumerates linear paths through the directed adjacency. Roots are
// nodes with outgoing but no incoming directed edges. Each root is expanded
// depth-first over an explicit stack; a path ends when it cannot be extended
// without revisiting one of its own nodes or when it reaches maxChainLength.
func chains(adj map[string][]catalog.Edge) [][]string {
	incoming := map[string]int{}
	for _, out := range adj {
		for _, e := range out {
			incoming[e.To]++
		}
	}

	var roots []string
	for id, out := range adj {
		if len(out) > 0 && incoming[id] == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	if len(roots) > maxRoots {
		roots = roots[:maxRoots]
	}

	type frame struct {
		path    []string
		visited map[string]bool
	}

	result := [][]string{}
	for _, root := range roots {
		stack := []frame{{path: []string{root}, visited: map[string]bool{root: true}}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			var next []string
			if len(top.path) < maxChainLength {
				next = successors(adj[top.path[len(top.path)-1]], top.visited)
			}
			if len(next) == 0 {
				if len(top.path) > 1 {
					result = append(result, top.path)
				}
				continue
			}

			// push in reverse so the best successor is expanded first
			for i := len(next) - 1; i >= 0; i-- {
				path := make([]string, len(top.path), len(top.path)+1)
				copy(path, top.path)
				path = append(path, next[i])

				visited := make(map[string]bool, len(top.visited)+1)
				for id := range top.visited {
					visited[id] = true
				}
				visited[next[i]] = true

				stack = append(stack, frame{path: path, visited: visited})
			}
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) > len(result[j])
		}
		return comparePaths(result[i], result[j]) < 0
	})
	if len(result) > maxChains {
		result = result[:maxChains]
	}
	return result
}

// successors returns up to maxBranching distinct targets of the first
// outgoing edges that are not already on the current path
func successors(out []catalog.Edge, visited map[string]bool) []string {
	if len(out) > maxBranching {
		out = out[:maxBranching]
	}
	seen := map[string]bool{}
	var next []string
	for _, e := range out {
		if visited[e.To] || seen[e.To] {
			continue
		}
		seen[e.To] = true
		next = append(next, e.To)
	}
	return next
}

func comparePaths(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
