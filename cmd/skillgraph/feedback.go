package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/feedback"
	"github.com/jingkaihe/skillgraph/pkg/presenter"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// FeedbackAddConfig holds the flags of feedback add
type FeedbackAddConfig struct {
	SkillID     string
	Stage       string
	Expected    []string
	Matched     []string
	Rating      float64
	Alternative bool
}

// NewFeedbackAddConfig creates a FeedbackAddConfig with default values
func NewFeedbackAddConfig() *FeedbackAddConfig {
	return &FeedbackAddConfig{
		Stage:  string(catalog.StageOther),
		Rating: 1,
	}
}

// Record converts the flags into a feedback record
func (c *FeedbackAddConfig) Record() workflow.Feedback {
	candidateType := workflow.CandidateSelected
	if c.Alternative {
		candidateType = workflow.CandidateAlternative
	}
	return workflow.Feedback{
		SkillID:       c.SkillID,
		StepStage:     catalog.ParseStage(c.Stage),
		ExpectedTags:  c.Expected,
		MatchedTags:   c.Matched,
		Rating:        c.Rating,
		CandidateType: candidateType,
	}
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record and inspect feedback on assembled skills",
	Long: `Feedback rates how well a skill served a plan step. Ratings range from -1 to 1
and bias future assemblies toward or away from the rated skill.`,
}

var feedbackAddCmd = &cobra.Command{
	Use:   "add SKILL",
	Short: "Rate a skill for a step",
	Example: `  skillgraph feedback add go-builder --stage implement --expected code,go --rating 1
  skillgraph feedback add rust-builder --stage implement --rating -0.5 --alternative`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		config := getFeedbackAddConfigFromFlags(cmd)
		config.SkillID = args[0]

		sqlDB, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		added, err := feedback.NewStore(sqlDB).Add(ctx, config.Record())
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Recorded feedback %s for %s (rating %+.2f)", added.ID, added.SkillID, added.Rating))
		return nil
	},
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded feedback, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		options := feedback.ListOptions{}
		options.SkillID, _ = cmd.Flags().GetString("skill")
		if stage, _ := cmd.Flags().GetString("stage"); stage != "" {
			options.StepStage = catalog.ParseStage(stage)
		}
		options.Limit, _ = cmd.Flags().GetInt("limit")
		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			t := time.Now().Add(-since)
			options.Since = &t
		}

		sqlDB, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		records, err := feedback.NewStore(sqlDB).List(ctx, options)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			presenter.Info("No feedback recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSKILL\tSTAGE\tRATING\tTYPE\tEXPECTED\tCREATED")
		for _, f := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%+.2f\t%s\t%s\t%s\n",
				f.ID, f.SkillID, f.StepStage, f.Rating, f.CandidateType,
				strings.Join(f.ExpectedTags, ","), f.CreatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var feedbackDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a feedback record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if noConfirm, _ := cmd.Flags().GetBool("yes"); !noConfirm {
			if answer := presenter.Prompt(fmt.Sprintf("Delete feedback %s?", args[0]), "y", "n"); answer != "y" {
				presenter.Info("Aborted")
				return nil
			}
		}

		sqlDB, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		if err := feedback.NewStore(sqlDB).Delete(ctx, args[0]); err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Deleted feedback %s", args[0]))
		return nil
	},
}

func init() {
	defaults := NewFeedbackAddConfig()
	feedbackAddCmd.Flags().String("stage", defaults.Stage, "Stage of the step the skill served")
	feedbackAddCmd.Flags().StringSlice("expected", nil, "Tags the step required")
	feedbackAddCmd.Flags().StringSlice("matched", nil, "Tags the skill matched")
	feedbackAddCmd.Flags().Float64("rating", defaults.Rating, "Rating between -1 and 1")
	feedbackAddCmd.Flags().Bool("alternative", false, "The rated skill was offered as an alternative")

	feedbackListCmd.Flags().String("skill", "", "Only feedback for this skill")
	feedbackListCmd.Flags().String("stage", "", "Only feedback for this stage")
	feedbackListCmd.Flags().Int("limit", 50, "Maximum number of records")
	feedbackListCmd.Flags().Duration("since", 0, "Only feedback newer than this duration (e.g. 72h)")

	feedbackDeleteCmd.Flags().BoolP("yes", "y", false, "Delete without confirmation")

	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackDeleteCmd)
}

// getFeedbackAddConfigFromFlags extracts feedback add configuration from command flags
func getFeedbackAddConfigFromFlags(cmd *cobra.Command) *FeedbackAddConfig {
	config := NewFeedbackAddConfig()

	if stage, err := cmd.Flags().GetString("stage"); err == nil {
		config.Stage = stage
	}
	if expected, err := cmd.Flags().GetStringSlice("expected"); err == nil {
		config.Expected = expected
	}
	if matched, err := cmd.Flags().GetStringSlice("matched"); err == nil {
		config.Matched = matched
	}
	if rating, err := cmd.Flags().GetFloat64("rating"); err == nil {
		config.Rating = rating
	}
	if alternative, err := cmd.Flags().GetBool("alternative"); err == nil {
		config.Alternative = alternative
	}

	return config
}
