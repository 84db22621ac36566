package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/presenter"
	"github.com/jingkaihe/skillgraph/pkg/skills"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List discovered skills with their normalized tags",
	Long: `Discovers SKILL.md bundles in the configured skill and plugin directories and
prints each catalog entry with its stage, normalized tags and any tag issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := skills.Load(cmd.Context(), cfg.Skills)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(skills.Entries(loaded))
		}

		if len(loaded) == 0 {
			presenter.Warning("No skills found")
			return nil
		}

		names := make([]string, 0, len(loaded))
		for name := range loaded {
			names = append(names, name)
		}
		sort.Strings(names)

		presenter.Section(fmt.Sprintf("Skills (%d)", len(loaded)))
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tSTAGE\tINPUTS\tARTIFACTS\tCAPABILITIES")
		for _, name := range names {
			s := loaded[name]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Stage,
				strings.Join(s.Inputs, ","), strings.Join(s.Artifacts, ","), strings.Join(s.Capabilities, ","))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, name := range names {
			if issues := loaded[name].Issues; len(issues) > 0 {
				presenter.Warning(fmt.Sprintf("%s: %d tag issue(s)", name, len(issues)))
				presenter.TagIssues(issues)
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().Bool("json", false, "Print catalog entries as JSON")
}
