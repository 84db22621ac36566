package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/workflow"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of plan files",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(workflow.PlanSchema())
	},
}
