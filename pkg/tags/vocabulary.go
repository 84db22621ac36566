package tags

import (
	"sort"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
)

type kind int

const (
	kindArtifact kind = iota
	kindTopic
	kindActivity
)

// vocabulary is the fixed set of canonical tags. Every entry is lower-case
// alphanumeric words joined by single hyphens, which keeps Normalize
// idempotent on its own output.
var vocabulary = map[string]kind{
	// deliverables
	"plan":      kindArtifact,
	"spec":      kindArtifact,
	"schema":    kindArtifact,
	"code":      kindArtifact,
	"patch":     kindArtifact,
	"tests":     kindArtifact,
	"docs":      kindArtifact,
	"config":    kindArtifact,
	"report":    kindArtifact,
	"pr":        kindArtifact,
	"deploy":    kindArtifact,
	"readme":    kindArtifact,
	"changelog": kindArtifact,
	"scripts":   kindArtifact,
	"diagram":   kindArtifact,
	"migration": kindArtifact,
	"fixtures":  kindArtifact,
	"checklist": kindArtifact,
	"summary":   kindArtifact,
	"dataset":   kindArtifact,

	// languages, platforms and domains
	"javascript":             kindTopic,
	"typescript":             kindTopic,
	"python":                 kindTopic,
	"go":                     kindTopic,
	"rust":                   kindTopic,
	"java":                   kindTopic,
	"nodejs":                 kindTopic,
	"react":                  kindTopic,
	"html":                   kindTopic,
	"css":                    kindTopic,
	"sql":                    kindTopic,
	"graphql":                kindTopic,
	"rest-api":               kindTopic,
	"api":                    kindTopic,
	"docker":                 kindTopic,
	"kubernetes":             kindTopic,
	"terraform":              kindTopic,
	"aws":                    kindTopic,
	"gcp":                    kindTopic,
	"azure":                  kindTopic,
	"git":                    kindTopic,
	"github":                 kindTopic,
	"ci-cd":                  kindTopic,
	"cli":                    kindTopic,
	"bash":                   kindTopic,
	"database":               kindTopic,
	"frontend":               kindTopic,
	"backend":                kindTopic,
	"mobile":                 kindTopic,
	"infrastructure":         kindTopic,
	"mcp":                    kindTopic,
	"model-context-protocol": kindTopic,
	"llm":                    kindTopic,
	"machine-learning":       kindTopic,
	"prompt-engineering":     kindTopic,
	"authentication":         kindTopic,
	"observability":          kindTopic,
	"accessibility":          kindTopic,
	"localization":           kindTopic,
	"design-system":          kindTopic,
	"markdown":               kindTopic,
	"json":                   kindTopic,
	"yaml":                   kindTopic,
	"data":                   kindTopic,
	"monorepo":               kindTopic,

	// activities
	"planning":               kindActivity,
	"requirements":           kindActivity,
	"workflow":               kindActivity,
	"tasks":                  kindActivity,
	"quality":                kindActivity,
	"validation":             kindActivity,
	"testing":                kindActivity,
	"unit-testing":           kindActivity,
	"e2e-testing":            kindActivity,
	"debugging":              kindActivity,
	"refactoring":            kindActivity,
	"code-review":            kindActivity,
	"security":               kindActivity,
	"linting":                kindActivity,
	"formatting":             kindActivity,
	"documentation":          kindActivity,
	"deployment":             kindActivity,
	"monitoring":             kindActivity,
	"logging":                kindActivity,
	"performance":            kindActivity,
	"profiling":              kindActivity,
	"benchmarking":           kindActivity,
	"data-modeling":          kindActivity,
	"api-design":             kindActivity,
	"architecture":           kindActivity,
	"research":               kindActivity,
	"brainstorming":          kindActivity,
	"estimation":             kindActivity,
	"triage":                 kindActivity,
	"incident-response":      kindActivity,
	"compliance":             kindActivity,
	"release-management":     kindActivity,
	"versioning":             kindActivity,
	"dependency-management":  kindActivity,
	"static-analysis":        kindActivity,
	"vulnerability-scanning": kindActivity,
	"threat-modeling":        kindActivity,
	"scaffolding":            kindActivity,
	"code-generation":        kindActivity,
	"automation":             kindActivity,
	"analysis":               kindActivity,
	"summarization":          kindActivity,
	"packaging":              kindActivity,
	"onboarding":             kindActivity,
}

// aliases map short forms onto canonical tags. Keys are space-joined
// cleaned phrases.
var aliases = map[string]string{
	"js":         "javascript",
	"ts":         "typescript",
	"node":       "nodejs",
	"node js":    "nodejs",
	"py":         "python",
	"golang":     "go",
	"k8s":        "kubernetes",
	"tf":         "terraform",
	"gh":         "github",
	"db":         "database",
	"ci":         "ci-cd",
	"postgres":   "database",
	"postgresql": "database",
	"mysql":      "database",
	"sqlite":     "database",
	"fe":         "frontend",
	"be":         "backend",
	"infra":      "infrastructure",
	"auth":       "authentication",
	"a11y":       "accessibility",
	"i18n":       "localization",
	"l10n":       "localization",
	"perf":       "performance",
	"sec":        "security",
	"doc":        "docs",
	"cfg":        "config",
	"conf":       "config",
	"md":         "markdown",
	"ml":         "machine-learning",
	"ai":         "llm",
	"e2e":        "e2e-testing",
}

// synonyms map alternative wordings onto canonical tags. Keys are either
// compacted (no spaces) or space-joined cleaned phrases.
var synonyms = map[string]string{
	"pullrequest":        "pr",
	"pull request":       "pr",
	"mergerequest":       "pr",
	"codereview":         "code-review",
	"review":             "code-review",
	"peerreview":         "code-review",
	"docstring":          "docs",
	"apidocs":            "docs",
	"specification":      "spec",
	"specs":              "spec",
	"prd":                "spec",
	"designdoc":          "spec",
	"unittests":          "tests",
	"testsuite":          "tests",
	"testcases":          "tests",
	"test":               "testing",
	"qa":                 "quality",
	"bugfix":             "patch",
	"fix":                "patch",
	"hotfix":             "patch",
	"diff":               "patch",
	"sourcecode":         "code",
	"implementation":     "code",
	"configuration":      "config",
	"settings":           "config",
	"env":                "config",
	"releasenotes":       "changelog",
	"changes":            "changelog",
	"shipping":           "deploy",
	"rollout":            "deploy",
	"roadmap":            "plan",
	"todo":               "tasks",
	"todos":              "tasks",
	"tickets":            "tasks",
	"issues":             "tasks",
	"lint":               "linting",
	"linter":             "linting",
	"format":             "formatting",
	"prettier":           "formatting",
	"debug":              "debugging",
	"refactor":           "refactoring",
	"cleanup":            "refactoring",
	"vulnerabilities":    "vulnerability-scanning",
	"cve":                "vulnerability-scanning",
	"sast":               "static-analysis",
	"diagrams":           "diagram",
	"mermaid":            "diagram",
	"uml":                "diagram",
	"migrations":         "migration",
	"dbschema":           "schema",
	"erd":                "schema",
	"metrics":            "monitoring",
	"tracing":            "observability",
	"telemetry":          "observability",
	"logs":               "logging",
	"benchmark":          "benchmarking",
	"benchmarks":         "benchmarking",
	"profile":            "profiling",
	"restapi":            "rest-api",
	"openapi":            "rest-api",
	"swagger":            "rest-api",
	"containers":         "docker",
	"helm":               "kubernetes",
	"shell":              "bash",
	"shellscript":        "scripts",
	"script":             "scripts",
	"prompts":            "prompt-engineering",
	"prompt engineering": "prompt-engineering",
	"requirement":        "requirements",
	"userstories":        "requirements",
	"acceptancecriteria": "requirements",
	"reports":            "report",
	"findings":           "report",
	"audit":              "compliance",
}

// compoundPhrases are checked by containment, in order
var compoundPhrases = []struct {
	phrase string
	tag    string
}{
	{"mcp server", "mcp"},
	{"mcp client", "mcp"},
	{"pull request", "pr"},
	{"merge request", "pr"},
	{"code review", "code-review"},
	{"unit test", "unit-testing"},
	{"end to end", "e2e-testing"},
	{"release notes", "changelog"},
	{"api design", "api-design"},
	{"threat model", "threat-modeling"},
	{"github actions", "ci-cd"},
	{"continuous integration", "ci-cd"},
	{"database schema", "schema"},
	{"design system", "design-system"},
}

// artifactAutocorrect rescues tags that map to a non-artifact canonical tag
// when normalizing the artifacts field.
var artifactAutocorrect = map[string]string{
	"workflow":           "plan",
	"planning":           "plan",
	"database":           "schema",
	"data-modeling":      "schema",
	"cli":                "scripts",
	"bash":               "scripts",
	"automation":         "scripts",
	"testing":            "tests",
	"unit-testing":       "tests",
	"e2e-testing":        "tests",
	"documentation":      "docs",
	"markdown":           "docs",
	"deployment":         "deploy",
	"requirements":       "spec",
	"api-design":         "spec",
	"code-review":        "report",
	"analysis":           "report",
	"refactoring":        "patch",
	"release-management": "changelog",
	"versioning":         "changelog",
	"code-generation":    "code",
	"scaffolding":        "code",
	"architecture":       "diagram",
	"yaml":               "config",
	"json":               "config",
	"github":             "pr",
}

// sortedVocabulary is iterated by the fuzzy matchers so ties resolve the same way every call
var sortedVocabulary = func() []string {
	out := make([]string, 0, len(vocabulary))
	for t := range vocabulary {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}()

// Vocabulary returns every canonical tag, sorted
func Vocabulary() []string {
	out := make([]string, len(sortedVocabulary))
	copy(out, sortedVocabulary)
	return out
}

// IsCanonical reports whether tag belongs to the vocabulary
func IsCanonical(tag string) bool {
	_, ok := vocabulary[tag]
	return ok
}

// Allowed reports whether a canonical tag may appear in the given field
func Allowed(tag string, field Field) bool {
	k, ok := vocabulary[tag]
	if !ok {
		return false
	}
	switch field {
	case FieldArtifacts:
		return k == kindArtifact
	case FieldCapabilities:
		return k == kindTopic || k == kindActivity
	case FieldInputs:
		return true
	default:
		return false
	}
}

// AllowList returns the sorted canonical tags permitted in a field
func AllowList(field Field) []string {
	var out []string
	for _, t := range sortedVocabulary {
		if Allowed(t, field) {
			out = append(out, t)
		}
	}
	return out
}

// IsInterfaceArtifact reports whether tag names a concrete deliverable kind
func IsInterfaceArtifact(tag string) bool {
	return catalog.IsInterfaceArtifact(tag)
}
