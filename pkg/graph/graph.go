// Package graph infers typed, weighted relationships between catalog
// entries from tag-overlap statistics.
//
// Build is a pure function of its entry list: it sorts its own copy of the
// input, so the same set of entries always produces the same graph no
// matter the order they arrive in. Report logs a diagnostics summary of a
// built graph and never alters it.
package graph

import (
	"math"
	"sort"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

const (
	thresholdFloor      = 1.2
	thresholdPercentile = 0.70

	artifactWeight   = 1.35
	capabilityWeight = 1.15

	// specificityRatio bounds the document frequency of at least one overlap
	// tag, as a share of the corpus.
	specificityRatio   = 0.3
	highInformationIDF = 1.7
	minAlternativeSim  = 0.6
	reciprocalTieGap   = 0.12

	maxRoots       = 30
	maxBranching   = 4
	maxChainLength = 8
	maxChains      = 20
	topNodeCount   = 10
)

// topK is the per-type degree cap applied during pruning
var topK = map[catalog.EdgeType]int{
	catalog.EdgeDependsOn:     5,
	catalog.EdgePrecedes:      5,
	catalog.EdgeComplements:   5,
	catalog.EdgeAlternativeTo: 3,
}

// stoplist holds tags too generic to justify a relationship on their own
var stoplist = map[string]bool{
	"workflow":     true,
	"planning":     true,
	"tasks":        true,
	"quality":      true,
	"validation":   true,
	"requirements": true,
}

// builder carries the corpus statistics and drop tallies of one Build call
type builder struct {
	entries []catalog.Entry
	stages  map[string]catalog.Stage
	df      map[string]int
	n       int
	dfLimit int
	drops   catalog.DropReasons
}

// Build computes the relationship graph for a catalog snapshot
func Build(entries []catalog.Entry) *catalog.Graph {
	b := newBuilder(entries)

	candidates := b.candidates()
	threshold := thresholdFor(candidates)

	kept := make([]catalog.Edge, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < threshold {
			b.drops.Threshold++
			continue
		}
		kept = append(kept, c)
	}

	kept = b.resolveReciprocal(kept)
	kept = mergeUndirected(kept)
	kept = b.prune(kept)
	sortEdges(kept)

	g := catalog.NewGraph()
	g.Edges = kept
	g.Adjacency = adjacency(kept)
	g.Related = related(kept)
	g.Chains = chains(g.Adjacency)
	g.Metrics = b.metrics(kept, threshold, len(candidates))
	return g
}

func newBuilder(entries []catalog.Entry) *builder {
	canonical := catalog.Canonical(entries)
	sorted := make([]catalog.Entry, 0, len(canonical))
	for _, e := range canonical {
		sorted = append(sorted, catalog.Entry{
			ID:           e.ID,
			Stage:        e.Stage,
			Inputs:       e.Inputs,
			Artifacts:    e.Artifacts,
			Capabilities: e.Capabilities,
		})
	}

	b := &builder{
		entries: sorted,
		stages:  make(map[string]catalog.Stage, len(sorted)),
		df:      map[string]int{},
		n:       len(sorted),
	}
	for _, e := range sorted {
		b.stages[e.ID] = e.Stage
		for _, t := range e.AllTags() {
			b.df[t]++
		}
	}
	b.dfLimit = int(math.Floor(float64(b.n) * specificityRatio))
	if b.dfLimit < 1 {
		b.dfLimit = 1
	}
	return b
}

// idf is the smoothed inverse document frequency of a tag
func (b *builder) idf(tag string) float64 {
	return math.Log(float64(b.n+1)/float64(b.df[tag]+1)) + 1
}

func (b *builder) score(tags []string, weight float64) float64 {
	total := 0.0
	for _, t := range tags {
		total += b.idf(t) * weight
	}
	return total
}

// thresholdFor returns the score cutoff for a candidate set
func thresholdFor(candidates []catalog.Edge) float64 {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}
	return math.Max(thresholdFloor, percentile(scores, thresholdPercentile))
}

// percentile returns the linearly interpolated p-th percentile, 0 for no values
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// edgeLess is the deterministic ordering used for the final edge list
func edgeLess(a, b catalog.Edge) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.From != b.From {
		return a.From < b.From
	}
	if a.To != b.To {
		return a.To < b.To
	}
	return a.Type < b.Type
}

func sortEdges(edges []catalog.Edge) {
	sort.SliceStable(edges, func(i, j int) bool { return edgeLess(edges[i], edges[j]) })
}
