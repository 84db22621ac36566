package presenter

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

func newTestPresenter() (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var output, errorOutput bytes.Buffer
	return NewWithOptions(&output, &errorOutput, ColorNever), &output, &errorOutput
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name       string
		noColor    string
		colorValue string
		expected   ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"SKILLGRAPH_COLOR always", "", "always", ColorAlways},
		{"SKILLGRAPH_COLOR force", "", "force", ColorAlways},
		{"SKILLGRAPH_COLOR never", "", "never", ColorNever},
		{"SKILLGRAPH_COLOR off", "", "off", ColorNever},
		{"default", "", "", ColorAuto},
		{"invalid value", "", "sometimes", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("SKILLGRAPH_COLOR", tt.colorValue)
			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestMessages(t *testing.T) {
	p, output, errorOutput := newTestPresenter()

	p.Error(errors.New("catalog is empty"), "graph")
	assert.Equal(t, "[ERROR] graph: catalog is empty\n", errorOutput.String())

	errorOutput.Reset()
	p.Error(nil, "graph")
	assert.Empty(t, errorOutput.String())

	p.Success("done")
	p.Warning("careful")
	p.Info("fyi")
	p.Section("Steps")
	assert.Equal(t, "✓ done\n⚠ careful\nfyi\nSteps\n-----\n", output.String())

	output.Reset()
	p.SetQuiet(true)
	assert.True(t, p.IsQuiet())
	p.Success("done")
	p.Info("fyi")
	p.Separator()
	assert.Empty(t, output.String())
}

func TestPrompt(t *testing.T) {
	p, output, _ := newTestPresenter()
	p.input = strings.NewReader("  yes \n")

	answer := p.Prompt("Delete feedback?", "yes", "no")

	assert.Equal(t, "yes", answer)
	assert.Equal(t, "Delete feedback? [yes/no]: ", output.String())
}

func TestGraph(t *testing.T) {
	g := catalog.NewGraph()
	g.Edges = []catalog.Edge{
		{From: "planner", To: "builder", Type: catalog.EdgeDependsOn, Score: 3.104, OverlapTags: []string{"schema"}},
		{From: "go-builder", To: "rust-builder", Type: catalog.EdgeAlternativeTo, Score: 2.3, OverlapTags: []string{"code-generation"}},
	}
	g.Chains = [][]string{{"planner", "builder"}}
	g.Metrics = catalog.Metrics{
		EdgeCount:      2,
		Threshold:      1.2,
		CandidateCount: 5,
		Distribution:   map[catalog.EdgeType]int{catalog.EdgeDependsOn: 1, catalog.EdgeAlternativeTo: 1},
		DropReasons:    catalog.DropReasons{Spec: 2, TopK: 1},
		TopNodes:       []catalog.NodeDegree{{ID: "planner", Degree: 1, OutDegree: 1}},
	}

	p, output, _ := newTestPresenter()
	p.Graph(g)

	out := output.String()
	assert.Contains(t, out, "Edges (2)")
	assert.Contains(t, out, "planner -> builder  depends_on  3.10  [schema]")
	assert.Contains(t, out, "go-builder -- rust-builder  alternative_to  2.30  [code-generation]")
	assert.Contains(t, out, "planner → builder")
	assert.Contains(t, out, "candidates: 5  kept: 2  threshold: 1.200")
	assert.Contains(t, out, "depends_on=1 precedes=0 complements=0 alternative_to=1")
	assert.Contains(t, out, "spec=2")
	assert.Contains(t, out, "topK=1")
	assert.Contains(t, out, "top nodes: planner(1)")

	output.Reset()
	p.Graph(nil)
	assert.Empty(t, output.String())
}

func TestAssembly(t *testing.T) {
	result := workflow.Result{
		Steps: []workflow.StepResult{
			{
				StepID: "design",
				Title:  "Design the API",
				Stage:  catalog.StagePlan,
				Selected: &workflow.Candidate{
					SkillID: "planner", Score: 3.35, Confidence: 0.671,
					Reasoning: []string{"outputs matched: schema"},
				},
				Alternatives: []workflow.Candidate{{SkillID: "schema-designer", Score: 3.1, Confidence: 0.63}},
				Locked:       true,
			},
			{
				StepID:      "ship",
				Stage:       catalog.StageRelease,
				MissingTags: []string{"deploy"},
				Reasoning:   []string{"no candidate met constraints"},
			},
		},
		UnmetTags: []string{"deploy"},
	}

	p, output, _ := newTestPresenter()
	p.Assembly(result)

	out := output.String()
	assert.Contains(t, out, "design: Design the API (plan)")
	assert.Contains(t, out, "✓ planner [locked]  score 3.35  confidence 0.67")
	assert.Contains(t, out, "    outputs matched: schema")
	assert.Contains(t, out, "  alt schema-designer  score 3.10")
	assert.Contains(t, out, "ship (release)")
	assert.Contains(t, out, "✗ no candidate met constraints")
	assert.Contains(t, out, "  missing: deploy")
	assert.Contains(t, out, "⚠ unmet across plan: deploy")
}

func TestTagIssues(t *testing.T) {
	p, output, _ := newTestPresenter()
	p.TagIssues([]tags.Issue{
		{Field: tags.FieldArtifacts, Raw: "golang", Mapped: "go", Reason: tags.ReasonFieldNotAllowed},
		{Field: tags.FieldCapabilities, Raw: "zzqxv", Reason: tags.ReasonUnknownTag},
	})

	assert.Equal(t,
		"  artifacts: \"golang\" → go (field_not_allowed)\n  capabilities: \"zzqxv\" (unknown_tag)\n",
		output.String())
}

func TestGlobalFunctions(t *testing.T) {
	original := defaultPresenter
	p, output, errorOutput := newTestPresenter()
	defaultPresenter = p
	defer func() { defaultPresenter = original }()

	Error(errors.New("boom"), "")
	assert.Contains(t, errorOutput.String(), "[ERROR] boom")

	Success("ok")
	Warning("hmm")
	Info("note")
	Section("Title")
	Separator()
	out := output.String()
	for _, want := range []string{"✓ ok", "⚠ hmm", "note", "Title", strings.Repeat("-", 60)} {
		assert.Contains(t, out, want)
	}

	output.Reset()
	Assembly(workflow.Result{})
	TagIssues(nil)
	assert.Empty(t, output.String())

	SetQuiet(true)
	assert.True(t, IsQuiet())
	Graph(catalog.NewGraph())
	assert.Empty(t, output.String())
	SetQuiet(false)
}
