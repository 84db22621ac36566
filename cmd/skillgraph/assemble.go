package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/engine"
	"github.com/jingkaihe/skillgraph/pkg/presenter"
	"github.com/jingkaihe/skillgraph/pkg/workflow"
)

var assembleCmd = &cobra.Command{
	Use:   "assemble PLAN.yaml",
	Short: "Assemble a workflow for a plan",
	Long: `Maps every step of a YAML plan onto the best matching skill of the catalog,
using the relationship graph for continuity between steps and recorded
feedback as a bias.

Steps without an id are addressed as step-1, step-2, ... in --lock.`,
	Example: `  skillgraph assemble plan.yaml
  skillgraph assemble plan.yaml --lock build=go-builder --alternatives 5
  skillgraph assemble plan.yaml --no-graph --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		plan, err := workflow.LoadPlan(args[0])
		if err != nil {
			return err
		}

		lockFlags, _ := cmd.Flags().GetStringSlice("lock")
		locks, err := parseLocks(lockFlags)
		if err != nil {
			return err
		}

		opts := engine.AssembleOptions{
			Locks:      locks,
			NoGraph:    cfg.Assembly.NoGraph,
			NoFeedback: cfg.Assembly.NoFeedback,
		}
		if cmd.Flags().Changed("alternatives") {
			opts.Alternatives, _ = cmd.Flags().GetInt("alternatives")
		}
		if noGraph, _ := cmd.Flags().GetBool("no-graph"); noGraph {
			opts.NoGraph = true
		}
		if noFeedback, _ := cmd.Flags().GetBool("no-feedback"); noFeedback {
			opts.NoFeedback = true
		}

		a := newApp(ctx)
		defer a.Close()

		assembly, err := a.engine.Assemble(ctx, plan, opts)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(assembly)
		}

		if len(assembly.Issues) > 0 {
			presenter.Warning(fmt.Sprintf("%d plan tag issue(s)", len(assembly.Issues)))
			presenter.TagIssues(assembly.Issues)
		}
		presenter.Assembly(assembly.Result)
		return nil
	},
}

// parseLocks turns step=skill pairs into a lock map
func parseLocks(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	locks := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		step, skill, ok := strings.Cut(pair, "=")
		step, skill = strings.TrimSpace(step), strings.TrimSpace(skill)
		if !ok || step == "" || skill == "" {
			return nil, errors.Errorf("invalid lock %q, expected step=skill", pair)
		}
		locks[step] = skill
	}
	return locks, nil
}

func init() {
	assembleCmd.Flags().StringSlice("lock", nil, "Force a skill for a step (step=skill, repeatable)")
	assembleCmd.Flags().Int("alternatives", 3, "Alternatives per step (0 uses the default, negative disables)")
	assembleCmd.Flags().Bool("no-graph", false, "Assemble without graph continuity")
	assembleCmd.Flags().Bool("no-feedback", false, "Ignore recorded feedback")
	assembleCmd.Flags().Bool("json", false, "Print the result as JSON")
}
