package presenter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/jingkaihe/skillgraph/pkg/tags"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// Graph prints the edges, chains and metrics of a relationship graph
func (p *TerminalPresenter) Graph(g *catalog.Graph) {
	if p.quiet || g == nil {
		return
	}

	p.Section(fmt.Sprintf("Edges (%d)", len(g.Edges)))
	typeColor := color.New(color.FgCyan)
	for _, e := range g.Edges {
		arrow := "--"
		if e.Type.Directed() {
			arrow = "->"
		}
		fmt.Fprintf(p.output, "%s %s %s  %s  %.2f  [%s]\n",
			e.From, arrow, e.To, typeColor.Sprint(e.Type), e.Score, strings.Join(e.OverlapTags, ", "))
	}

	if len(g.Chains) > 0 {
		fmt.Fprintln(p.output)
		p.Section(fmt.Sprintf("Chains (%d)", len(g.Chains)))
		for _, chain := range g.Chains {
			fmt.Fprintln(p.output, strings.Join(chain, " → "))
		}
	}

	m := g.Metrics
	fmt.Fprintln(p.output)
	p.Section("Metrics")
	fmt.Fprintf(p.output, "candidates: %d  kept: %d  threshold: %.3f  density: %.4f\n",
		m.CandidateCount, m.EdgeCount, m.Threshold, m.Density)

	dist := make([]string, 0, len(catalog.EdgeTypes))
	for _, t := range catalog.EdgeTypes {
		dist = append(dist, fmt.Sprintf("%s=%d", t, m.Distribution[t]))
	}
	fmt.Fprintf(p.output, "distribution: %s\n", strings.Join(dist, " "))

	d := m.DropReasons
	fmt.Fprintf(p.output, "dropped: stoplist=%d spec=%d stage=%d similarity=%d threshold=%d topK=%d reciprocal=%d\n",
		d.Stoplist, d.Spec, d.Stage, d.Similarity, d.Threshold, d.TopK, d.Reciprocal)

	if len(m.TopNodes) > 0 {
		nodes := make([]string, len(m.TopNodes))
		for i, n := range m.TopNodes {
			nodes[i] = fmt.Sprintf("%s(%d)", n.ID, n.Degree)
		}
		fmt.Fprintf(p.output, "top nodes: %s\n", strings.Join(nodes, " "))
	}
}

// Assembly prints the per-step selections of an assembly result
func (p *TerminalPresenter) Assembly(result workflow.Result) {
	if p.quiet {
		return
	}

	selected := color.New(color.FgGreen, color.Bold)
	missing := color.New(color.FgYellow)
	faint := color.New(color.Faint)

	for i, step := range result.Steps {
		if i > 0 {
			fmt.Fprintln(p.output)
		}
		title := fmt.Sprintf("%s (%s)", step.StepID, step.Stage)
		if step.Title != "" {
			title = fmt.Sprintf("%s: %s (%s)", step.StepID, step.Title, step.Stage)
		}
		p.Section(title)

		if step.Selected == nil {
			missing.Fprintf(p.output, "✗ %s\n", strings.Join(step.Reasoning, "; "))
		} else {
			lock := ""
			if step.Locked {
				lock = " [locked]"
			}
			selected.Fprintf(p.output, "✓ %s%s  score %.2f  confidence %.2f\n",
				step.Selected.SkillID, lock, step.Selected.Score, step.Selected.Confidence)
			for _, r := range step.Selected.Reasoning {
				faint.Fprintf(p.output, "    %s\n", r)
			}
		}

		for _, alt := range step.Alternatives {
			fmt.Fprintf(p.output, "  alt %s  score %.2f  confidence %.2f\n", alt.SkillID, alt.Score, alt.Confidence)
		}
		if len(step.MissingTags) > 0 {
			missing.Fprintf(p.output, "  missing: %s\n", strings.Join(step.MissingTags, ", "))
		}
	}

	if len(result.UnmetTags) > 0 {
		fmt.Fprintln(p.output)
		missing.Fprintf(p.output, "⚠ unmet across plan: %s\n", strings.Join(result.UnmetTags, ", "))
	}
}

// TagIssues prints tag normalization issues, one per line
func (p *TerminalPresenter) TagIssues(issues []tags.Issue) {
	if p.quiet || len(issues) == 0 {
		return
	}

	issueColor := color.New(color.FgYellow)
	for _, issue := range issues {
		if issue.Mapped != "" {
			issueColor.Fprintf(p.output, "  %s: %q → %s (%s)\n", issue.Field, issue.Raw, issue.Mapped, issue.Reason)
			continue
		}
		issueColor.Fprintf(p.output, "  %s: %q (%s)\n", issue.Field, issue.Raw, issue.Reason)
	}
}
