// Package skills discovers skill bundles on disk and turns them into
// normalized catalog entries.
// A bundle is a directory containing a SKILL.md file whose YAML frontmatter
// names the skill, describes it and declares its stage and raw tags.
package skills

import (
	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

// Skill represents a discovered skill with its metadata
type Skill struct {
	Name         string        // Unique name from frontmatter, plugin-prefixed when applicable
	Description  string        // Brief description
	Directory    string        // Full path to the skill directory
	Content      string        // Body of SKILL.md, without frontmatter
	Stage        catalog.Stage // Parsed lifecycle stage
	Raw          Metadata      // Frontmatter as written
	Inputs       []string
	Artifacts    []string
	Capabilities []string
	Issues       []tags.Issue // Tags that could not be mapped cleanly
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name         string   `mapstructure:"name"`
	Description  string   `mapstructure:"description"`
	Stage        string   `mapstructure:"stage"`
	Inputs       []string `mapstructure:"inputs"`
	Artifacts    []string `mapstructure:"artifacts"`
	Capabilities []string `mapstructure:"capabilities"`
}

// Entry returns the catalog entry of the skill
func (s *Skill) Entry() catalog.Entry {
	return catalog.Entry{
		ID:           s.Name,
		Name:         s.Raw.Name,
		Description:  s.Description,
		Stage:        s.Stage,
		Inputs:       s.Inputs,
		Artifacts:    s.Artifacts,
		Capabilities: s.Capabilities,
	}
}

// normalize canonicalizes the raw frontmatter tags of the skill
func (s *Skill) normalize() {
	s.Stage = catalog.ParseStage(s.Raw.Stage)

	var issues, found []tags.Issue
	s.Inputs, found = tags.Normalize(s.Raw.Inputs, tags.FieldInputs)
	issues = append(issues, found...)
	s.Artifacts, found = tags.Normalize(s.Raw.Artifacts, tags.FieldArtifacts)
	issues = append(issues, found...)
	s.Capabilities, found = tags.Normalize(s.Raw.Capabilities, tags.FieldCapabilities)
	issues = append(issues, found...)
	s.Issues = issues
}
