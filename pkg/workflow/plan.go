package workflow

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// LoadPlan reads and parses a YAML plan file
func LoadPlan(path string) (workflow.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return workflow.Plan{}, errors.Wrapf(err, "failed to read plan file %s", path)
	}
	plan, err := ParsePlan(data)
	if err != nil {
		return workflow.Plan{}, errors.Wrapf(err, "invalid plan file %s", path)
	}
	return plan, nil
}

// ParsePlan decodes a YAML (or JSON) plan document. Step stages are parsed
// leniently and steps without an id receive a positional one.
func ParsePlan(data []byte) (workflow.Plan, error) {
	var plan workflow.Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return workflow.Plan{}, errors.Wrap(err, "failed to parse plan")
	}
	return PreparePlan(plan)
}

// PreparePlan assigns positional ids to steps without one, parses stages and
// rejects empty plans and duplicate step ids. The input plan is not modified.
func PreparePlan(plan workflow.Plan) (workflow.Plan, error) {
	if len(plan.Steps) == 0 {
		return workflow.Plan{}, errors.New("plan has no steps")
	}

	out := workflow.Plan{Name: plan.Name, Steps: make([]workflow.Step, len(plan.Steps))}
	seen := map[string]bool{}
	for i, s := range plan.Steps {
		s.ID = s.Key(i)
		if seen[s.ID] {
			return workflow.Plan{}, errors.Errorf("duplicate step id %q", s.ID)
		}
		seen[s.ID] = true
		s.Stage = catalog.ParseStage(string(s.Stage))
		out.Steps[i] = s
	}
	return out, nil
}

// CanonicalizePlan maps every step's raw tags onto the canonical vocabulary.
// Step outputs are normalized as artifacts.
func CanonicalizePlan(plan workflow.Plan) (workflow.Plan, []tags.Issue) {
	var issues []tags.Issue
	out := workflow.Plan{Name: plan.Name, Steps: make([]workflow.Step, len(plan.Steps))}
	for i, s := range plan.Steps {
		var found []tags.Issue
		s.Inputs, found = tags.Normalize(s.Inputs, tags.FieldInputs)
		issues = append(issues, found...)
		s.Outputs, found = tags.Normalize(s.Outputs, tags.FieldArtifacts)
		issues = append(issues, found...)
		s.Capabilities, found = tags.Normalize(s.Capabilities, tags.FieldCapabilities)
		issues = append(issues, found...)
		out.Steps[i] = s
	}
	return out, issues
}
