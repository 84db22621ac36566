package graph

import (
	"context"

	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// Report logs the diagnostics of a built graph
func Report(ctx context.Context, g *catalog.Graph) {
	if g == nil {
		return
	}
	m := g.Metrics
	log := logger.G(ctx)

	log.WithFields(map[string]any{
		"edges":      m.EdgeCount,
		"candidates": m.CandidateCount,
		"threshold":  m.Threshold,
		"density":    m.Density,
		"chains":     len(g.Chains),
	}).Info("skill graph built")

	distribution := map[string]any{}
	for _, t := range catalog.EdgeTypes {
		distribution[string(t)] = m.Distribution[t]
	}
	log.WithFields(distribution).Debug("edge distribution")

	d := m.DropReasons
	log.WithFields(map[string]any{
		"stoplist":   d.Stoplist,
		"spec":       d.Spec,
		"stage":      d.Stage,
		"similarity": d.Similarity,
		"threshold":  d.Threshold,
		"top_k":      d.TopK,
		"reciprocal": d.Reciprocal,
	}).Debug("candidate drop reasons")

	for _, n := range m.TopNodes {
		log.WithFields(map[string]any{
			"skill":      n.ID,
			"degree":     n.Degree,
			"out_degree": n.OutDegree,
		}).Trace("top node")
	}
}
