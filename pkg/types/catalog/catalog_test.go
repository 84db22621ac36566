package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageOrdering(t *testing.T) {
	assert.Equal(t, 0, StageIntake.Rank())
	assert.Equal(t, 8, StageOther.Rank())
	assert.Equal(t, StageOther.Rank(), Stage("deploying").Rank())

	assert.Equal(t, 1, StagePlan.Distance(StageImplement))
	assert.Equal(t, 1, StageImplement.Distance(StagePlan))
	assert.Equal(t, 0, StageDocs.Distance(StageDocs))
	assert.Equal(t, 7, StageIntake.Distance(StageRelease))
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		raw      string
		expected Stage
	}{
		{"implement", StageImplement},
		{"  Verify ", StageVerify},
		{"SECURITY", StageSecurity},
		{"", StageOther},
		{"deploy", StageOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseStage(tt.raw))
		})
	}
}

func TestTagSetOperations(t *testing.T) {
	assert.Equal(t, []string{"go", "code"}, NormalizeTags([]string{" Go", "code", "go", ""}))
	assert.Equal(t, []string{"code", "go"}, Intersect([]string{"go", "code", "docs"}, []string{"CODE", "go"}))
	assert.Equal(t, []string{}, Intersect(nil, []string{"go"}))
	assert.Equal(t, []string{"code", "docs", "go"}, Union([]string{"go", "code"}, []string{"docs", "go"}))

	assert.Equal(t, 0.0, Jaccard(nil, nil))
	assert.InDelta(t, 1.0/3.0, Jaccard([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.Equal(t, 1.0, Jaccard([]string{"a"}, []string{"A"}))
}

func TestEntryAllTags(t *testing.T) {
	e := Entry{
		Inputs:       []string{"spec"},
		Artifacts:    []string{"code", "tests"},
		Capabilities: []string{"go", "code"},
	}
	assert.Equal(t, []string{"code", "go", "spec", "tests"}, e.AllTags())
}

func TestGraphLookups(t *testing.T) {
	var nilGraph *Graph
	assert.False(t, nilGraph.HasEdge("a", "b", EdgeDependsOn))
	assert.Nil(t, nilGraph.EdgesOfType(EdgeDependsOn))

	g := NewGraph()
	dep := Edge{From: "planner", To: "builder", Type: EdgeDependsOn, Score: 3}
	alt := Edge{From: "go-builder", To: "rust-builder", Type: EdgeAlternativeTo, Score: 2}
	g.Edges = []Edge{dep, alt}
	g.Adjacency["planner"] = []Edge{dep}

	assert.True(t, g.HasEdge("planner", "builder", EdgeDependsOn))
	assert.False(t, g.HasEdge("planner", "builder", EdgePrecedes))
	assert.False(t, g.HasEdge("builder", "planner", EdgeDependsOn))
	assert.Equal(t, []Edge{alt}, g.EdgesOfType(EdgeAlternativeTo))

	assert.True(t, EdgeDependsOn.Directed())
	assert.False(t, EdgeComplements.Directed())
	assert.True(t, IsInterfaceArtifact("schema"))
	assert.False(t, IsInterfaceArtifact("go"))
}

func TestDropReasonsTotal(t *testing.T) {
	d := DropReasons{Stoplist: 1, Spec: 2, Stage: 3, Similarity: 4, Threshold: 5, TopK: 6, Reciprocal: 7}
	assert.Equal(t, 28, d.Total())
}

func TestCanonical(t *testing.T) {
	verify := Entry{ID: "a", Stage: "Verify", Inputs: []string{"Code"}}
	plan := Entry{ID: "a", Stage: "plan", Artifacts: []string{"spec"}}
	other := Entry{ID: "b", Stage: "unknown"}
	blank := Entry{Stage: StagePlan}

	forward := Canonical([]Entry{verify, plan, other, blank})
	backward := Canonical([]Entry{blank, other, plan, verify})

	assert.Equal(t, forward, backward)
	assert.Equal(t, []Entry{
		{ID: "a", Stage: StagePlan, Inputs: []string{}, Artifacts: []string{"spec"}, Capabilities: []string{}},
		{ID: "b", Stage: StageOther, Inputs: []string{}, Artifacts: []string{}, Capabilities: []string{}},
	}, forward)

	sameStage := Canonical([]Entry{
		{ID: "c", Stage: StageDocs, Capabilities: []string{"markdown"}},
		{ID: "c", Stage: StageDocs, Capabilities: []string{"documentation"}},
	})
	assert.Equal(t, []string{"documentation"}, sameStage[0].Capabilities)
}
