// Package workflow defines plan, feedback and assembly result types used by
// the workflow assembler and the layers that load plans or store feedback.
package workflow

import (
	"fmt"
	"time"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// Step is one ordered requirement of a workflow plan
type Step struct {
	ID           string        `json:"id,omitempty" yaml:"id,omitempty" jsonschema:"description=Stable step identifier used for locks"`
	Title        string        `json:"title,omitempty" yaml:"title,omitempty"`
	Stage        catalog.Stage `json:"stage" yaml:"stage" jsonschema:"enum=intake,enum=plan,enum=implement,enum=verify,enum=refactor,enum=security,enum=docs,enum=release,enum=other"`
	Inputs       []string      `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs      []string      `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Capabilities []string      `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// Key returns the step id, or a positional id when the step has none
func (s Step) Key(index int) string {
	if s.ID != "" {
		return s.ID
	}
	return fmt.Sprintf("step-%d", index+1)
}

// RequiredTags returns the union of the step's required input, output and capability tags
func (s Step) RequiredTags() []string {
	return catalog.Union(s.Inputs, s.Outputs, s.Capabilities)
}

// Plan is an ordered list of steps
type Plan struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// CandidateType records whether feedback was given on a selected candidate or an alternative
type CandidateType string

// Candidate types
const (
	CandidateSelected    CandidateType = "selected"
	CandidateAlternative CandidateType = "alternative"
)

// Feedback is a historical human rating of a candidate for a step
type Feedback struct {
	ID            string        `json:"id,omitempty"`
	SkillID       string        `json:"skillId"`
	StepStage     catalog.Stage `json:"stepStage"`
	ExpectedTags  []string      `json:"expectedTags"`
	MatchedTags   []string      `json:"matchedTags"`
	Rating        float64       `json:"rating"`
	CandidateType CandidateType `json:"candidateType"`
	CreatedAt     time.Time     `json:"createdAt,omitempty"`
}

// Candidate is a scored pairing of one catalog entry to one plan step
type Candidate struct {
	SkillID     string   `json:"skillId"`
	Score       float64  `json:"score"`
	Confidence  float64  `json:"confidence"`
	MatchedTags []string `json:"matchedTags"`
	GraphBoost  float64  `json:"graphBoost"`
	Reasoning   []string `json:"reasoning"`
}

// StepResult is the assembler's decision for one plan step
type StepResult struct {
	StepID       string        `json:"stepId"`
	Title        string        `json:"title,omitempty"`
	Stage        catalog.Stage `json:"stage"`
	Selected     *Candidate    `json:"selected"`
	Alternatives []Candidate   `json:"alternatives"`
	OverlapTags  []string      `json:"overlapTags"`
	MissingTags  []string      `json:"missingCapabilities"`
	Locked       bool          `json:"locked"`
	Reasoning    []string      `json:"reasoning,omitempty"`
}

// Result is the outcome of assembling a whole plan
type Result struct {
	Steps     []StepResult `json:"steps"`
	UnmetTags []string     `json:"unmetTags"`
}
