// Package catalog defines the catalog entry, relationship edge and graph
// types shared by the graph builder, the workflow assembler and the outer
// layers (discovery, storage, API) of skillgraph.
package catalog

import (
	"sort"
	"strings"
)

// Stage is one of the ordered lifecycle phases a skill or plan step belongs to
type Stage string

// Lifecycle stages in their fixed order
const (
	StageIntake    Stage = "intake"
	StagePlan      Stage = "plan"
	StageImplement Stage = "implement"
	StageVerify    Stage = "verify"
	StageRefactor  Stage = "refactor"
	StageSecurity  Stage = "security"
	StageDocs      Stage = "docs"
	StageRelease   Stage = "release"
	StageOther     Stage = "other"
)

// Stages lists every stage in lifecycle order
var Stages = []Stage{
	StageIntake,
	StagePlan,
	StageImplement,
	StageVerify,
	StageRefactor,
	StageSecurity,
	StageDocs,
	StageRelease,
	StageOther,
}

var stageRanks = func() map[Stage]int {
	ranks := make(map[Stage]int, len(Stages))
	for i, s := range Stages {
		ranks[s] = i
	}
	return ranks
}()

// Rank returns the position of the stage in the lifecycle ordering.
// Unknown stages rank as StageOther.
func (s Stage) Rank() int {
	if r, ok := stageRanks[s]; ok {
		return r
	}
	return stageRanks[StageOther]
}

// Valid reports whether s is one of the known stages
func (s Stage) Valid() bool {
	_, ok := stageRanks[s]
	return ok
}

// Distance returns the absolute rank distance between two stages
func (s Stage) Distance(other Stage) int {
	d := s.Rank() - other.Rank()
	if d < 0 {
		return -d
	}
	return d
}

// ParseStage maps a free-form stage string onto a known stage, falling back to StageOther
func ParseStage(raw string) Stage {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if s.Valid() {
		return s
	}
	return StageOther
}

// Entry is a cataloged skill with its canonical tag sets
type Entry struct {
	ID           string   `json:"id"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	Stage        Stage    `json:"stage"`
	Inputs       []string `json:"inputs"`
	Artifacts    []string `json:"artifacts"`
	Capabilities []string `json:"capabilities"`
}

// AllTags returns the union of the entry's three tag sets
func (e Entry) AllTags() []string {
	return Union(e.Inputs, e.Artifacts, e.Capabilities)
}

// Canonical returns the entries with parsed stages and normalized tags,
// sorted by id. Entries without an id are dropped. Among entries sharing an
// id the lowest stage rank wins, then the lexically smallest tag sets, so the
// result does not depend on input order.
func Canonical(entries []Entry) []Entry {
	all := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		e.Stage = ParseStage(string(e.Stage))
		e.Inputs = NormalizeTags(e.Inputs)
		e.Artifacts = NormalizeTags(e.Artifacts)
		e.Capabilities = NormalizeTags(e.Capabilities)
		all = append(all, e)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ID != all[j].ID {
			return all[i].ID < all[j].ID
		}
		return entryLess(all[i], all[j])
	})

	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if len(out) > 0 && out[len(out)-1].ID == e.ID {
			continue
		}
		out = append(out, e)
	}
	return out
}

func entryLess(a, b Entry) bool {
	if a.Stage.Rank() != b.Stage.Rank() {
		return a.Stage.Rank() < b.Stage.Rank()
	}
	for _, pair := range [][2][]string{
		{a.Inputs, b.Inputs},
		{a.Artifacts, b.Artifacts},
		{a.Capabilities, b.Capabilities},
	} {
		x, y := strings.Join(Union(pair[0]), ","), strings.Join(Union(pair[1]), ",")
		if x != y {
			return x < y
		}
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Description < b.Description
}

// InterfaceArtifacts are the artifact tags naming concrete deliverable
// kinds. Dependency inference only considers overlaps on these tags.
var InterfaceArtifacts = []string{
	"plan", "spec", "schema", "code", "patch", "tests", "docs",
	"config", "report", "pr", "deploy", "readme", "changelog",
}

var interfaceArtifactSet = TagSet(InterfaceArtifacts)

// IsInterfaceArtifact reports whether tag is one of the InterfaceArtifacts
func IsInterfaceArtifact(tag string) bool {
	return interfaceArtifactSet[tag]
}

// EdgeType names a relationship between two catalog entries
type EdgeType string

// Relationship types
const (
	EdgeDependsOn     EdgeType = "depends_on"
	EdgePrecedes      EdgeType = "precedes"
	EdgeComplements   EdgeType = "complements"
	EdgeAlternativeTo EdgeType = "alternative_to"
)

// EdgeTypes lists every relationship type in reporting order
var EdgeTypes = []EdgeType{EdgeDependsOn, EdgePrecedes, EdgeComplements, EdgeAlternativeTo}

// Directed reports whether edges of this type have a meaningful direction
func (t EdgeType) Directed() bool {
	return t == EdgeDependsOn || t == EdgePrecedes
}

// Edge is a typed, scored relationship between two entries. Undirected
// edges are stored with From < To.
type Edge struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Type        EdgeType `json:"type"`
	Score       float64  `json:"score"`
	OverlapTags []string `json:"overlapTags"`
}

// DropReasons tallies why candidate edges were rejected during a graph build
type DropReasons struct {
	Stoplist   int `json:"stoplist"`
	Spec       int `json:"spec"`
	Stage      int `json:"stage"`
	Similarity int `json:"similarity"`
	Threshold  int `json:"threshold"`
	TopK       int `json:"topK"`
	Reciprocal int `json:"reciprocal"`
}

// Total returns the sum of all drop counters
func (d DropReasons) Total() int {
	return d.Stoplist + d.Spec + d.Stage + d.Similarity + d.Threshold + d.TopK + d.Reciprocal
}

// NodeDegree reports the degree of a single node in the kept edge set
type NodeDegree struct {
	ID        string `json:"id"`
	Degree    int    `json:"degree"`
	OutDegree int    `json:"outDegree"`
}

// Metrics summarizes a built graph
type Metrics struct {
	EdgeCount      int              `json:"edgeCount"`
	Density        float64          `json:"density"`
	Distribution   map[EdgeType]int `json:"distribution"`
	TopNodes       []NodeDegree     `json:"topNodes"`
	DropReasons    DropReasons      `json:"dropReasons"`
	Threshold      float64          `json:"threshold"`
	CandidateCount int              `json:"candidateCount"`
}

// Graph is the relationship graph built from a catalog snapshot
type Graph struct {
	Edges []Edge `json:"edges"`
	// Adjacency holds directed edges (depends_on, precedes) keyed by source,
	// in pruning order.
	Adjacency map[string][]Edge `json:"adjacency"`
	// Related is a symmetric neighbor index over every kept edge.
	Related map[string][]string `json:"related"`
	Chains  [][]string          `json:"chains"`
	Metrics Metrics             `json:"metrics"`
}

// NewGraph returns an empty graph with initialized indexes
func NewGraph() *Graph {
	return &Graph{
		Edges:     []Edge{},
		Adjacency: map[string][]Edge{},
		Related:   map[string][]string{},
		Chains:    [][]string{},
		Metrics: Metrics{
			Distribution: map[EdgeType]int{},
			TopNodes:     []NodeDegree{},
		},
	}
}

// HasEdge reports whether a directed edge of the given type exists from -> to
func (g *Graph) HasEdge(from, to string, t EdgeType) bool {
	if g == nil {
		return false
	}
	for _, e := range g.Adjacency[from] {
		if e.To == to && e.Type == t {
			return true
		}
	}
	return false
}

// EdgesOfType returns the kept edges of a single type
func (g *Graph) EdgesOfType(t EdgeType) []Edge {
	if g == nil {
		return nil
	}
	var out []Edge
	for _, e := range g.Edges {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// NormalizeTags lower-cases, trims and deduplicates tags, keeping first-seen order
func NormalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// TagSet builds a set from normalized tags
func TagSet(tags []string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range NormalizeTags(tags) {
		set[t] = true
	}
	return set
}

// Intersect returns the sorted normalized tags present in both lists
func Intersect(a, b []string) []string {
	right := TagSet(b)
	out := []string{}
	for _, t := range NormalizeTags(a) {
		if right[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Union returns the sorted, deduplicated normalized tags of every list
func Union(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, l := range lists {
		for _, t := range NormalizeTags(l) {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Jaccard returns |a ∩ b| / |a ∪ b| over normalized tags, 0 when both are empty
func Jaccard(a, b []string) float64 {
	union := Union(a, b)
	if len(union) == 0 {
		return 0
	}
	return float64(len(Intersect(a, b))) / float64(len(union))
}
