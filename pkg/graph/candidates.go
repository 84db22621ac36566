package graph

import (
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// candidates generates every scored relationship candidate that survives the
// per-type filters, tallying rejections on the builder.
func (b *builder) candidates() []catalog.Edge {
	var out []catalog.Edge

	for i := range b.entries {
		for j := range b.entries {
			if i == j {
				continue
			}
			out = append(out, b.directed(b.entries[i], b.entries[j])...)
		}
	}

	for i := range b.entries {
		for j := i + 1; j < len(b.entries); j++ {
			if c, ok := b.complements(b.entries[i], b.entries[j]); ok {
				out = append(out, c)
			}
			if c, ok := b.alternative(b.entries[i], b.entries[j]); ok {
				out = append(out, c)
			}
		}
	}

	return out
}

// directed builds the depends_on and precedes candidates for from -> to.
// Both feed from's artifacts into to's inputs.
func (b *builder) directed(from, to catalog.Entry) []catalog.Edge {
	overlap := catalog.Intersect(from.Artifacts, to.Inputs)
	if len(overlap) == 0 {
		return nil
	}

	var out []catalog.Edge
	if tags, ok := b.specific(overlap, true); ok {
		out = append(out, catalog.Edge{
			From:        from.ID,
			To:          to.ID,
			Type:        catalog.EdgeDependsOn,
			Score:       b.score(tags, artifactWeight),
			OverlapTags: tags,
		})
	}

	if to.Stage.Rank() <= from.Stage.Rank() {
		b.drops.Stage++
		return out
	}
	if tags, ok := b.specific(overlap, true); ok {
		out = append(out, catalog.Edge{
			From:        from.ID,
			To:          to.ID,
			Type:        catalog.EdgePrecedes,
			Score:       b.score(tags, artifactWeight),
			OverlapTags: tags,
		})
	}
	return out
}

// complements requires a specific capability overlap with at least one
// high-information tag. a.ID < b.ID.
func (b *builder) complements(a, c catalog.Entry) (catalog.Edge, bool) {
	overlap := catalog.Intersect(a.Capabilities, c.Capabilities)
	if len(overlap) == 0 {
		return catalog.Edge{}, false
	}
	tags, ok := b.specific(overlap, false)
	if !ok {
		return catalog.Edge{}, false
	}
	if !b.hasHighInformation(tags) {
		b.drops.Spec++
		return catalog.Edge{}, false
	}
	return catalog.Edge{
		From:        a.ID,
		To:          c.ID,
		Type:        catalog.EdgeComplements,
		Score:       b.score(tags, capabilityWeight),
		OverlapTags: tags,
	}, true
}

// alternative pairs entries in the same or adjacent stage whose
// non-generic capability sets are highly similar. a.ID < b.ID.
func (b *builder) alternative(a, c catalog.Entry) (catalog.Edge, bool) {
	left := withoutStoplist(a.Capabilities)
	right := withoutStoplist(c.Capabilities)
	shared := catalog.Intersect(left, right)
	if len(shared) == 0 {
		return catalog.Edge{}, false
	}
	if a.Stage.Distance(c.Stage) > 1 {
		b.drops.Stage++
		return catalog.Edge{}, false
	}
	sim := catalog.Jaccard(left, right)
	if sim < minAlternativeSim {
		b.drops.Similarity++
		return catalog.Edge{}, false
	}
	return catalog.Edge{
		From:        a.ID,
		To:          c.ID,
		Type:        catalog.EdgeAlternativeTo,
		Score:       b.score(shared, capabilityWeight) * (1 + sim),
		OverlapTags: shared,
	}, true
}

// specific applies the shared specificity filter and returns the surviving
// overlap tags. interfaceOnly restricts the overlap to deliverable kinds.
func (b *builder) specific(overlap []string, interfaceOnly bool) ([]string, bool) {
	tags := overlap
	if interfaceOnly {
		tags = filterTags(tags, catalog.IsInterfaceArtifact)
		if len(tags) == 0 {
			b.drops.Spec++
			return nil, false
		}
	}

	tags = withoutStoplist(tags)
	if len(tags) == 0 {
		b.drops.Stoplist++
		return nil, false
	}

	for _, t := range tags {
		if b.df[t] <= b.dfLimit {
			return tags, true
		}
	}
	b.drops.Spec++
	return nil, false
}

func (b *builder) hasHighInformation(tags []string) bool {
	for _, t := range tags {
		if b.idf(t) >= highInformationIDF {
			return true
		}
	}
	return false
}

func withoutStoplist(tags []string) []string {
	return filterTags(tags, func(t string) bool { return !stoplist[t] })
}

func filterTags(tags []string, keep func(string) bool) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
