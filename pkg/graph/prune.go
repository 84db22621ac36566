package graph

import (
	"math"
	"sort"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

type pairKey struct {
	a, b string
}

func unorderedPair(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// resolveReciprocal ensures no pair keeps depends_on in both directions.
// The direction into the strictly later stage wins; between equal stages a
// near tie is demoted to a single complements edge, otherwise the higher
// score wins.
func (b *builder) resolveReciprocal(edges []catalog.Edge) []catalog.Edge {
	type directions struct {
		forward, backward *catalog.Edge
	}

	groups := map[pairKey]*directions{}
	var keys []pairKey
	out := make([]catalog.Edge, 0, len(edges))

	for i := range edges {
		e := edges[i]
		if e.Type != catalog.EdgeDependsOn {
			out = append(out, e)
			continue
		}
		key := unorderedPair(e.From, e.To)
		d, ok := groups[key]
		if !ok {
			d = &directions{}
			groups[key] = d
			keys = append(keys, key)
		}
		slot := &d.forward
		if e.From != key.a {
			slot = &d.backward
		}
		if *slot != nil {
			b.drops.Reciprocal++
			if (*slot).Score >= e.Score {
				continue
			}
		}
		*slot = &e
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	for _, key := range keys {
		d := groups[key]
		switch {
		case d.backward == nil:
			out = append(out, *d.forward)
		case d.forward == nil:
			out = append(out, *d.backward)
		default:
			out = append(out, b.tieBreak(*d.forward, *d.backward)...)
		}
	}
	return out
}

func (b *builder) tieBreak(forward, backward catalog.Edge) []catalog.Edge {
	forwardDelta := b.stages[forward.To].Rank() - b.stages[forward.From].Rank()
	backwardDelta := b.stages[backward.To].Rank() - b.stages[backward.From].Rank()

	forwardLater := forwardDelta > 0
	backwardLater := backwardDelta > 0
	if forwardLater != backwardLater {
		b.drops.Reciprocal++
		if forwardLater {
			return []catalog.Edge{forward}
		}
		return []catalog.Edge{backward}
	}

	if math.Abs(forward.Score-backward.Score) <= reciprocalTieGap {
		b.drops.Reciprocal += 2
		return []catalog.Edge{{
			From:        forward.From,
			To:          forward.To,
			Type:        catalog.EdgeComplements,
			Score:       (forward.Score + backward.Score) / 2,
			OverlapTags: catalog.Union(forward.OverlapTags, backward.OverlapTags),
		}}
	}

	b.drops.Reciprocal++
	if forward.Score > backward.Score {
		return []catalog.Edge{forward}
	}
	return []catalog.Edge{backward}
}

// mergeUndirected collapses duplicate complements / alternative_to pairs into
// one edge with the max score and the union of overlap tags.
func mergeUndirected(edges []catalog.Edge) []catalog.Edge {
	type mergeKey struct {
		t    catalog.EdgeType
		pair pairKey
	}

	merged := map[mergeKey]int{}
	out := make([]catalog.Edge, 0, len(edges))
	for _, e := range edges {
		if e.Type.Directed() {
			out = append(out, e)
			continue
		}
		pair := unorderedPair(e.From, e.To)
		e.From, e.To = pair.a, pair.b
		e.OverlapTags = catalog.Union(e.OverlapTags)

		key := mergeKey{t: e.Type, pair: pair}
		if idx, ok := merged[key]; ok {
			existing := &out[idx]
			existing.Score = math.Max(existing.Score, e.Score)
			existing.OverlapTags = catalog.Union(existing.OverlapTags, e.OverlapTags)
			continue
		}
		merged[key] = len(out)
		out = append(out, e)
	}
	return out
}

// prune applies the per-type top-K caps. Directed types keep the best K
// edges per source; undirected types are admitted greedily in score order
// while both endpoints remain under K.
func (b *builder) prune(edges []catalog.Edge) []catalog.Edge {
	type sourceKey struct {
		from string
		t    catalog.EdgeType
	}

	directed := map[sourceKey][]catalog.Edge{}
	var sources []sourceKey
	undirected := map[catalog.EdgeType][]catalog.Edge{}

	for _, e := range edges {
		if e.Type.Directed() {
			key := sourceKey{from: e.From, t: e.Type}
			if _, ok := directed[key]; !ok {
				sources = append(sources, key)
			}
			directed[key] = append(directed[key], e)
			continue
		}
		undirected[e.Type] = append(undirected[e.Type], e)
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].from != sources[j].from {
			return sources[i].from < sources[j].from
		}
		return sources[i].t < sources[j].t
	})

	out := make([]catalog.Edge, 0, len(edges))
	for _, key := range sources {
		group := directed[key]
		sortOutgoing(group)
		k := topK[key.t]
		if len(group) > k {
			b.drops.TopK += len(group) - k
			group = group[:k]
		}
		out = append(out, group...)
	}

	for _, t := range catalog.EdgeTypes {
		group := undirected[t]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Score != group[j].Score {
				return group[i].Score > group[j].Score
			}
			if group[i].From != group[j].From {
				return group[i].From < group[j].From
			}
			return group[i].To < group[j].To
		})

		k := topK[t]
		degree := map[string]int{}
		for _, e := range group {
			if degree[e.From] >= k || degree[e.To] >= k {
				b.drops.TopK++
				continue
			}
			degree[e.From]++
			degree[e.To]++
			out = append(out, e)
		}
	}

	return out
}

// sortOutgoing orders a node's outgoing edges by score desc, then target id
func sortOutgoing(edges []catalog.Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].Score != edges[j].Score {
			return edges[i].Score > edges[j].Score
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Type < edges[j].Type
	})
}
