package graph

import (
	"sort"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

func (b *builder) metrics(edges []catalog.Edge, threshold float64, candidateCount int) catalog.Metrics {
	m := catalog.Metrics{
		EdgeCount:      len(edges),
		Distribution:   make(map[catalog.EdgeType]int, len(catalog.EdgeTypes)),
		TopNodes:       topNodes(edges),
		DropReasons:    b.drops,
		Threshold:      threshold,
		CandidateCount: candidateCount,
	}
	if b.n > 1 {
		m.Density = float64(len(edges)) / float64(b.n*(b.n-1))
	}
	for _, t := range catalog.EdgeTypes {
		m.Distribution[t] = 0
	}
	for _, e := range edges {
		m.Distribution[e.Type]++
	}
	return m
}

// topNodes ranks nodes by total degree, then out-degree, then id
func topNodes(edges []catalog.Edge) []catalog.NodeDegree {
	degrees := map[string]*catalog.NodeDegree{}
	get := func(id string) *catalog.NodeDegree {
		d, ok := degrees[id]
		if !ok {
			d = &catalog.NodeDegree{ID: id}
			degrees[id] = d
		}
		return d
	}

	for _, e := range edges {
		from := get(e.From)
		from.Degree++
		if e.Type.Directed() {
			from.OutDegree++
		}
		get(e.To).Degree++
	}

	nodes := make([]catalog.NodeDegree, 0, len(degrees))
	for _, d := range degrees {
		nodes = append(nodes, *d)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Degree != nodes[j].Degree {
			return nodes[i].Degree > nodes[j].Degree
		}
		if nodes[i].OutDegree != nodes[j].OutDegree {
			return nodes[i].OutDegree > nodes[j].OutDegree
		}
		return nodes[i].ID < nodes[j].ID
	})
	if len(nodes) > topNodeCount {
		nodes = nodes[:topNodeCount]
	}
	return nodes
}
