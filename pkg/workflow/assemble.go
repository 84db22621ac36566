// Package workflow maps an ordered plan of steps onto catalog entries.
//
// Assemble scores every entry against every step in a single linear pass,
// carrying the previous step's winner forward for graph continuity. It never
// backtracks and never fails: a step nobody can serve is reported with a nil
// selection and its full set of required tags as missing.
package workflow

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jingkaihe/skillgraph/pkg/graph"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// DefaultAlternatives is the per-step alternatives limit used when Options leaves it unset
const DefaultAlternatives = 3

const (
	inputWeight      = 1.15
	outputWeight     = 1.35
	capabilityWeight = 1.1

	carryWeight     = 0.75
	dependsOnBoost  = 1.6
	precedesBoost   = 1.1
	maxFeedbackBias = 1.6

	otherStageWeight        = 0.35
	alternativeSourceWeight = 0.8

	minSelectableScore = 1.15
	confidenceSlope    = 0.75
	confidenceMidpoint = 2.4
)

// NoCandidateReason is reported for a step without a winner
const NoCandidateReason = "no candidate met constraints"

// Options tunes a single Assemble call
type Options struct {
	// Graph is a precomputed relationship graph. When nil the graph is built
	// from the entries unless EmptyGraph is set.
	Graph      *catalog.Graph
	EmptyGraph bool

	// AlternativesLimit caps alternatives per step. Zero means
	// DefaultAlternatives; a negative value disables alternatives.
	AlternativesLimit int

	// Locks maps a step key to the entry id that must win that step
	Locks map[string]string

	Feedback []workflow.Feedback
}

func (o Options) alternatives() int {
	switch {
	case o.AlternativesLimit == 0:
		return DefaultAlternatives
	case o.AlternativesLimit < 0:
		return 0
	default:
		return o.AlternativesLimit
	}
}

type assembler struct {
	entries  []catalog.Entry
	byID     map[string]catalog.Entry
	graph    *catalog.Graph
	feedback map[string][]workflow.Feedback
}

// Assemble selects a catalog entry and alternatives for every plan step
func Assemble(plan workflow.Plan, entries []catalog.Entry, opts Options) workflow.Result {
	a := newAssembler(entries, opts)
	limit := opts.alternatives()

	result := workflow.Result{
		Steps:     make([]workflow.StepResult, 0, len(plan.Steps)),
		UnmetTags: []string{},
	}
	unmet := map[string]bool{}

	var prev *catalog.Entry
	for i, raw := range plan.Steps {
		step := normalizeStep(raw)
		key := raw.Key(i)

		sr := a.assembleStep(step, key, prev, opts.Locks[key], limit)
		for _, t := range sr.MissingTags {
			unmet[t] = true
		}
		result.Steps = append(result.Steps, sr)

		prev = nil
		if sr.Selected != nil {
			winner := a.byID[sr.Selected.SkillID]
			prev = &winner
		}
	}

	for t := range unmet {
		result.UnmetTags = append(result.UnmetTags, t)
	}
	sort.Strings(result.UnmetTags)
	return result
}

func newAssembler(entries []catalog.Entry, opts Options) *assembler {
	a := &assembler{
		byID:     make(map[string]catalog.Entry, len(entries)),
		feedback: map[string][]workflow.Feedback{},
	}
	a.entries = catalog.Canonical(entries)
	for _, e := range a.entries {
		a.byID[e.ID] = e
	}

	switch {
	case opts.Graph != nil:
		a.graph = opts.Graph
	case opts.EmptyGraph:
		a.graph = catalog.NewGraph()
	default:
		a.graph = graph.Build(a.entries)
	}

	for _, f := range opts.Feedback {
		a.feedback[f.SkillID] = append(a.feedback[f.SkillID], f)
	}
	return a
}

func normalizeStep(s workflow.Step) workflow.Step {
	s.Stage = catalog.ParseStage(string(s.Stage))
	s.Inputs = catalog.NormalizeTags(s.Inputs)
	s.Outputs = catalog.NormalizeTags(s.Outputs)
	s.Capabilities = catalog.NormalizeTags(s.Capabilities)
	return s
}

func (a *assembler) assembleStep(step workflow.Step, key string, prev *catalog.Entry, lockID string, limit int) workflow.StepResult {
	sr := workflow.StepResult{
		StepID:       key,
		Title:        step.Title,
		Stage:        step.Stage,
		Alternatives: []workflow.Candidate{},
		OverlapTags:  []string{},
	}

	var selectable []workflow.Candidate
	for _, e := range a.entries {
		c, ok := a.score(step, e, prev)
		if ok {
			selectable = append(selectable, c)
		}
	}
	sort.SliceStable(selectable, func(i, j int) bool {
		if selectable[i].Score != selectable[j].Score {
			return selectable[i].Score > selectable[j].Score
		}
		return selectable[i].SkillID < selectable[j].SkillID
	})

	var winner *workflow.Candidate
	if locked, ok := a.byID[lockID]; ok {
		c, _ := a.score(step, locked, prev)
		c.Reasoning = append(c.Reasoning, "locked by caller")
		winner = &c
		sr.Locked = true
	} else if len(selectable) > 0 {
		c := selectable[0]
		winner = &c
	}

	for _, c := range selectable {
		if len(sr.Alternatives) >= limit {
			break
		}
		if winner != nil && c.SkillID == winner.SkillID {
			continue
		}
		sr.Alternatives = append(sr.Alternatives, c)
	}

	required := step.RequiredTags()
	if winner == nil {
		sr.MissingTags = required
		sr.Reasoning = []string{NoCandidateReason}
		return sr
	}

	sr.Selected = winner
	sr.OverlapTags = winner.MatchedTags
	sr.MissingTags = difference(required, winner.MatchedTags)
	if sr.Locked {
		sr.Reasoning = []string{fmt.Sprintf("%s locked for step %s (score %.2f)", winner.SkillID, key, winner.Score)}
	} else {
		sr.Reasoning = []string{fmt.Sprintf("%s selected with score %.2f out of %d selectable candidates", winner.SkillID, winner.Score, len(selectable))}
	}
	if len(sr.MissingTags) > 0 {
		sr.Reasoning = append(sr.Reasoning, "missing: "+strings.Join(sr.MissingTags, ", "))
	}
	return sr
}

// score evaluates one entry against one step and reports whether it is selectable
func (a *assembler) score(step workflow.Step, e catalog.Entry, prev *catalog.Entry) (workflow.Candidate, bool) {
	c := workflow.Candidate{
		SkillID:     e.ID,
		MatchedTags: []string{},
		Reasoning:   []string{},
	}

	stage := stageScore(step.Stage.Distance(e.Stage))
	if stage > 0 {
		c.Reasoning = append(c.Reasoning, fmt.Sprintf("stage %s vs %s: +%.2f", e.Stage, step.Stage, stage))
	}

	inputs := catalog.Intersect(step.Inputs, catalog.Union(e.Inputs, e.Capabilities))
	outputs := catalog.Intersect(step.Outputs, e.Artifacts)
	caps := catalog.Intersect(step.Capabilities, e.Capabilities)
	overlap := inputWeight*float64(len(inputs)) +
		outputWeight*float64(len(outputs)) +
		capabilityWeight*float64(len(caps))
	if len(inputs) > 0 {
		c.Reasoning = append(c.Reasoning, "inputs matched: "+strings.Join(inputs, ", "))
	}
	if len(outputs) > 0 {
		c.Reasoning = append(c.Reasoning, "outputs matched: "+strings.Join(outputs, ", "))
	}
	if len(caps) > 0 {
		c.Reasoning = append(c.Reasoning, "capabilities matched: "+strings.Join(caps, ", "))
	}
	c.MatchedTags = catalog.Union(inputs, outputs, caps)

	if prev != nil {
		c.GraphBoost = a.continuity(prev, e, &c)
	}

	bias := a.feedbackBias(step, e.ID)
	if bias != 0 {
		c.Reasoning = append(c.Reasoning, fmt.Sprintf("feedback bias %+.2f", bias))
	}

	c.Score = stage + overlap + c.GraphBoost + bias
	c.Confidence = confidence(c.Score)

	selectable := c.Score >= minSelectableScore && (len(c.MatchedTags) > 0 || c.GraphBoost != 0)
	return c, selectable
}

func (a *assembler) continuity(prev *catalog.Entry, e catalog.Entry, c *workflow.Candidate) float64 {
	carried := catalog.Intersect(prev.Artifacts, e.Inputs)
	boost := carryWeight * float64(len(carried))
	if len(carried) > 0 {
		c.Reasoning = append(c.Reasoning, fmt.Sprintf("consumes %s from %s", strings.Join(carried, ", "), prev.ID))
	}

	switch {
	case a.graph.HasEdge(prev.ID, e.ID, catalog.EdgeDependsOn):
		boost += dependsOnBoost
		c.Reasoning = append(c.Reasoning, fmt.Sprintf("depends on %s", prev.ID))
	case a.graph.HasEdge(prev.ID, e.ID, catalog.EdgePrecedes):
		boost += precedesBoost
		c.Reasoning = append(c.Reasoning, fmt.Sprintf("follows %s", prev.ID))
	}
	return boost
}

func (a *assembler) feedbackBias(step workflow.Step, skillID string) float64 {
	records := a.feedback[skillID]
	if len(records) == 0 {
		return 0
	}

	stepTags := step.RequiredTags()
	total := 0.0
	for _, f := range records {
		stageWeight := otherStageWeight
		if catalog.ParseStage(string(f.StepStage)) == step.Stage {
			stageWeight = 1
		}
		sourceWeight := 1.0
		if f.CandidateType == workflow.CandidateAlternative {
			sourceWeight = alternativeSourceWeight
		}
		conf := 0.2 + 0.8*catalog.Jaccard(stepTags, catalog.NormalizeTags(f.ExpectedTags))
		total += f.Rating * stageWeight * conf * sourceWeight
	}
	return math.Max(-maxFeedbackBias, math.Min(maxFeedbackBias, total))
}

func stageScore(distance int) float64 {
	switch distance {
	case 0:
		return 2
	case 1:
		return 1
	case 2:
		return 0.3
	default:
		return 0
	}
}

func confidence(score float64) float64 {
	v := 1 / (1 + math.Exp(-confidenceSlope*(score-confidenceMidpoint)))
	v = math.Max(0, math.Min(1, v))
	return math.Round(v*10000) / 10000
}

func difference(tags, remove []string) []string {
	drop := catalog.TagSet(remove)
	out := []string{}
	for _, t := range tags {
		if !drop[t] {
			out = append(out, t)
		}
	}
	return out
}
