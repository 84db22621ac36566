package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillgraph/pkg/cache"
	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/jingkaihe/skillgraph/pkg/db/migrations"
	"github.com/jingkaihe/skillgraph/pkg/feedback"
	"github.com/jingkaihe/skillgraph/pkg/graph"
	"github.com/jingkaihe/skillgraph/pkg/skills"
	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	workflowtypes "github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

func pipelineCatalog() StaticSource {
	entries := StaticSource{
		{ID: "planner", Stage: catalog.StagePlan, Artifacts: []string{"schema"}},
		{ID: "builder", Stage: catalog.StageImplement, Inputs: []string{"schema"}, Artifacts: []string{"code"}},
	}
	for i := 0; i < 8; i++ {
		entries = append(entries, catalog.Entry{ID: fmt.Sprintf("zz-filler-%d", i), Stage: catalog.StageOther})
	}
	return entries
}

func twoStepPlan() workflowtypes.Plan {
	return workflowtypes.Plan{Steps: []workflowtypes.Step{
		{ID: "design", Stage: catalog.StagePlan, Outputs: []string{"Schema"}},
		{ID: "build", Stage: catalog.StageImplement, Outputs: []string{"code"}},
	}}
}

type memoryCache struct {
	entries map[string][]byte
	gets    int
	hits    int
	puts    int
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, kind cache.Kind, fingerprint string, out any) (bool, error) {
	m.gets++
	if m.failGet {
		return false, errors.New("cache unavailable")
	}
	data, ok := m.entries[string(kind)+"/"+fingerprint]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(data, out)
}

func (m *memoryCache) Put(_ context.Context, kind cache.Kind, fingerprint string, value any) error {
	m.puts++
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[string(kind)+"/"+fingerprint] = data
	return nil
}

type staticFeedback struct {
	records []workflowtypes.Feedback
	err     error
	calls   int
}

func (s *staticFeedback) ListForSkills(context.Context, []string) ([]workflowtypes.Feedback, error) {
	s.calls++
	return s.records, s.err
}

type failingSource struct{}

func (failingSource) Entries(context.Context) ([]catalog.Entry, error) {
	return nil, errors.New("disk on fire")
}

func TestEngine_Graph(t *testing.T) {
	ctx := context.Background()
	source := pipelineCatalog()
	mc := newMemoryCache()
	e := New(source, WithCache(mc))

	g, err := e.Graph(ctx)
	require.NoError(t, err)
	assert.Equal(t, graph.Build(source).Edges, g.Edges)
	assert.True(t, g.HasEdge("planner", "builder", catalog.EdgeDependsOn))
	assert.Equal(t, 1, mc.puts)
	assert.Zero(t, mc.hits)

	again, err := e.Graph(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.hits)
	assert.Equal(t, 1, mc.puts)
	assert.Equal(t, g.Edges, again.Edges)
	assert.Equal(t, g.Chains, again.Chains)
}

func TestEngine_GraphWithoutCache(t *testing.T) {
	g, err := New(pipelineCatalog()).Graph(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"planner", "builder"}}, g.Chains)
}

func TestEngine_CacheFailureIsNotFatal(t *testing.T) {
	mc := newMemoryCache()
	mc.failGet = true

	g, err := New(pipelineCatalog(), WithCache(mc)).Graph(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, g.Edges)
	assert.Equal(t, 1, mc.puts)
}

func TestEngine_SourceError(t *testing.T) {
	e := New(failingSource{})

	_, err := e.Graph(context.Background())
	assert.ErrorContains(t, err, "failed to load catalog")

	_, err = e.Assemble(context.Background(), twoStepPlan(), AssembleOptions{})
	assert.ErrorContains(t, err, "disk on fire")
}

func TestEngine_Assemble(t *testing.T) {
	tests := []struct {
		name          string
		opts          AssembleOptions
		expectedBoost float64
	}{
		{name: "with graph", opts: AssembleOptions{}, expectedBoost: 0.75 + 1.6},
		{name: "without graph", opts: AssembleOptions{NoGraph: true}, expectedBoost: 0.75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assembly, err := New(pipelineCatalog()).Assemble(context.Background(), twoStepPlan(), tt.opts)
			require.NoError(t, err)
			assert.Empty(t, assembly.Issues)

			steps := assembly.Result.Steps
			require.Len(t, steps, 2)
			require.NotNil(t, steps[0].Selected)
			assert.Equal(t, "planner", steps[0].Selected.SkillID)
			require.NotNil(t, steps[1].Selected)
			assert.Equal(t, "builder", steps[1].Selected.SkillID)
			assert.InDelta(t, tt.expectedBoost, steps[1].Selected.GraphBoost, 1e-9)
		})
	}
}

func TestEngine_AssembleReportsIssuesAndLocks(t *testing.T) {
	plan := workflowtypes.Plan{Steps: []workflowtypes.Step{
		{Stage: catalog.StagePlan, Outputs: []string{"schema"}, Capabilities: []string{"zzqxv"}},
	}}

	assembly, err := New(pipelineCatalog()).Assemble(context.Background(), plan, AssembleOptions{
		NoGraph: true,
		Locks:   map[string]string{"step-1": "zz-filler-3"},
	})
	require.NoError(t, err)

	require.Len(t, assembly.Issues, 1)
	assert.Equal(t, tags.ReasonUnknownTag, assembly.Issues[0].Reason)

	step := assembly.Result.Steps[0]
	assert.True(t, step.Locked)
	require.NotNil(t, step.Selected)
	assert.Equal(t, "zz-filler-3", step.Selected.SkillID)
}

func TestEngine_AssembleAlternatives(t *testing.T) {
	source := StaticSource{
		{ID: "a", Stage: catalog.StageImplement, Artifacts: []string{"code"}},
		{ID: "b", Stage: catalog.StageImplement, Artifacts: []string{"code"}},
		{ID: "c", Stage: catalog.StageImplement, Artifacts: []string{"code"}},
	}
	plan := workflowtypes.Plan{Steps: []workflowtypes.Step{{Stage: catalog.StageImplement, Outputs: []string{"code"}}}}

	assembly, err := New(source, WithAlternatives(1)).Assemble(context.Background(), plan, AssembleOptions{NoGraph: true})
	require.NoError(t, err)
	assert.Len(t, assembly.Result.Steps[0].Alternatives, 1)

	assembly, err = New(source, WithAlternatives(1)).Assemble(context.Background(), plan, AssembleOptions{NoGraph: true, Alternatives: -1})
	require.NoError(t, err)
	assert.Empty(t, assembly.Result.Steps[0].Alternatives)
}

func TestEngine_AssembleFeedback(t *testing.T) {
	source := StaticSource{
		{ID: "a", Stage: catalog.StageImplement, Artifacts: []string{"code"}},
		{ID: "b", Stage: catalog.StageImplement, Artifacts: []string{"code"}},
	}
	plan := workflowtypes.Plan{Steps: []workflowtypes.Step{{ID: "build", Stage: catalog.StageImplement, Outputs: []string{"code"}}}}
	fb := &staticFeedback{records: []workflowtypes.Feedback{{
		SkillID:       "b",
		StepStage:     catalog.StageImplement,
		ExpectedTags:  []string{"code"},
		Rating:        1,
		CandidateType: workflowtypes.CandidateSelected,
	}}}
	e := New(source, WithFeedback(fb))

	assembly, err := e.Assemble(context.Background(), plan, AssembleOptions{NoGraph: true})
	require.NoError(t, err)
	assert.Equal(t, "b", assembly.Result.Steps[0].Selected.SkillID)
	assert.InDelta(t, 4.35, assembly.Result.Steps[0].Selected.Score, 1e-9)
	assert.Equal(t, 1, fb.calls)

	assembly, err = e.Assemble(context.Background(), plan, AssembleOptions{NoGraph: true, NoFeedback: true})
	require.NoError(t, err)
	assert.Equal(t, "a", assembly.Result.Steps[0].Selected.SkillID)
	assert.Equal(t, 1, fb.calls)

	fb.err = errors.New("locked")
	_, err = e.Assemble(context.Background(), plan, AssembleOptions{NoGraph: true})
	assert.ErrorContains(t, err, "failed to load feedback")
}

func TestEngine_AssembleCache(t *testing.T) {
	ctx := context.Background()
	mc := newMemoryCache()
	e := New(pipelineCatalog(), WithCache(mc))

	first, err := e.Assemble(ctx, twoStepPlan(), AssembleOptions{})
	require.NoError(t, err)
	// assembly and graph results
	assert.Equal(t, 2, mc.puts)

	second, err := e.Assemble(ctx, twoStepPlan(), AssembleOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, mc.puts)
	assert.Equal(t, first.Result, second.Result)

	_, err = e.Assemble(ctx, twoStepPlan(), AssembleOptions{NoGraph: true})
	require.NoError(t, err)
	assert.Equal(t, 3, mc.puts)
}

func TestEngine_WithStores(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	_, err = db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All())
	require.NoError(t, err)

	store := feedback.NewStore(sqlDB)
	_, err = store.Add(ctx, workflowtypes.Feedback{
		SkillID:      "builder",
		StepStage:    catalog.StageImplement,
		ExpectedTags: []string{"code"},
		Rating:       0.5,
	})
	require.NoError(t, err)

	e := New(pipelineCatalog(), WithFeedback(store), WithCache(cache.New(sqlDB)))
	assembly, err := e.Assemble(ctx, twoStepPlan(), AssembleOptions{})
	require.NoError(t, err)
	require.NotNil(t, assembly.Result.Steps[1].Selected)
	assert.Equal(t, "builder", assembly.Result.Steps[1].Selected.SkillID)
	assert.InDelta(t, 3.35+2.35+0.5, assembly.Result.Steps[1].Selected.Score, 1e-9)

	again, err := e.Assemble(ctx, twoStepPlan(), AssembleOptions{})
	require.NoError(t, err)
	assert.Equal(t, assembly.Result, again.Result)
}

func TestSkillSource(t *testing.T) {
	tmpDir := t.TempDir()
	source := SkillSource{Config: skills.Config{Dirs: []string{tmpDir}}}

	entries, err := source.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
