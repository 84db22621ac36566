package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/presenter"
	"github.com/jingkaihe/skillgraph/pkg/tags"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Inspect the tag vocabulary",
}

var tagsNormalizeCmd = &cobra.Command{
	Use:   "normalize [tag...]",
	Short: "Normalize raw tags for a field",
	Long: `Maps raw tags onto the canonical vocabulary for one field (inputs, artifacts or
capabilities) and reports tags that could not be mapped cleanly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fieldName, _ := cmd.Flags().GetString("field")
		field, err := parseField(fieldName)
		if err != nil {
			return err
		}

		normalized, issues := tags.Normalize(args, field)

		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"tags": normalized, "issues": issues})
		}

		if len(normalized) == 0 {
			presenter.Warning("No canonical tags")
		} else {
			presenter.Success(strings.Join(normalized, ", "))
		}
		if len(issues) > 0 {
			presenter.Section("Issues")
			presenter.TagIssues(issues)
		}
		return nil
	},
}

var tagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the canonical tags allowed in a field",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		fieldName, _ := cmd.Flags().GetString("field")
		field, err := parseField(fieldName)
		if err != nil {
			return err
		}
		for _, t := range tags.AllowList(field) {
			fmt.Println(t)
		}
		return nil
	},
}

func parseField(name string) (tags.Field, error) {
	for _, f := range tags.Fields {
		if string(f) == strings.ToLower(strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return "", errors.Errorf("invalid field %q, must be one of: inputs, artifacts, capabilities", name)
}

func init() {
	tagsNormalizeCmd.Flags().StringP("field", "f", string(tags.FieldCapabilities), "Tag field (inputs, artifacts, capabilities)")
	tagsNormalizeCmd.Flags().Bool("json", false, "Print the result as JSON")
	tagsListCmd.Flags().StringP("field", "f", string(tags.FieldCapabilities), "Tag field (inputs, artifacts, capabilities)")

	tagsCmd.AddCommand(tagsNormalizeCmd)
	tagsCmd.AddCommand(tagsListCmd)
}
