package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/presenter"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and print the skill relationship graph",
	Long: `Builds the relationship graph of the discovered catalog and prints its edges,
dependency chains and metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a := newApp(ctx)
		defer a.Close()

		g, err := a.engine.Graph(ctx)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		}

		presenter.Graph(g)
		return nil
	},
}

func init() {
	graphCmd.Flags().Bool("json", false, "Print the graph as JSON")
}
