package main

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillgraph/pkg/config"
	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/presenter"
)

// cfg is the configuration loaded before every command runs
var cfg config.Config

var tracingShutdown = func(context.Context) error { return nil }

var rootCmd = &cobra.Command{
	Use:   "skillgraph",
	Short: "Build relationship graphs and workflows from a catalog of skills",
	Long: `skillgraph discovers SKILL.md bundles, normalizes their tags, infers how
skills relate to each other and assembles multi-step workflows from plans.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cfg = loaded

		if err := logger.SetLogLevel(cfg.Log.Level); err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.Log.Level)
		}
		logger.SetLogFormat(cfg.Log.Format)

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to initialize tracing")
		}
		tracingShutdown = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		return tracingShutdown(cmd.Context())
	},
}

func init() {
	if err := config.Init(viper.GetViper()); err != nil {
		logger.L.WithError(err).Warn("failed to read config file")
	}

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().String("db-path", "", "Path of the SQLite database (overrides config)")
	rootCmd.PersistentFlags().StringSlice("skill-dir", nil, "Skill directories to scan, highest precedence first (overrides config)")
	rootCmd.PersistentFlags().StringSlice("allow", nil, "Glob patterns of skill names to keep (overrides config)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db-path"))
	viper.BindPFlag("skills.dirs", rootCmd.PersistentFlags().Lookup("skill-dir"))
	viper.BindPFlag("skills.allowed", rootCmd.PersistentFlags().Lookup("allow"))

	rootCmd.AddCommand(withTracing(scanCmd))
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(withTracing(graphCmd))
	rootCmd.AddCommand(withTracing(assembleCmd))
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		presenter.Error(err, "")
		os.Exit(1)
	}
}
