package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillgraph/pkg/cache"
	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/jingkaihe/skillgraph/pkg/db/migrations"
	"github.com/jingkaihe/skillgraph/pkg/presenter"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the skillgraph database (migrations, status, cache).`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the current database migration status, including applied and pending migrations.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sqlDB, err := db.Open(ctx, cfg.DB.Path)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		applied, err := db.NewMigrationRunner(sqlDB).GetAppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}

		appliedMap := make(map[int64]bool)
		for _, v := range applied {
			appliedMap[v] = true
		}

		allMigrations := migrations.All()

		presenter.Section("Database Migration Status")
		presenter.Info(fmt.Sprintf("Database: %s\n", cfg.DB.Path))

		appliedCount := 0
		for _, m := range allMigrations {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[✓]"
				appliedCount++
			}
			presenter.Info(fmt.Sprintf("%s %d - %s", status, m.Version, m.Description))
		}

		presenter.Info(fmt.Sprintf("\nApplied: %d/%d migrations", appliedCount, len(allMigrations)))

		if err := db.VerifyConfiguration(sqlDB); err != nil {
			presenter.Warning(fmt.Sprintf("Configuration check failed: %s", err))
		} else {
			presenter.Success("WAL journal, NORMAL sync and foreign keys are enabled")
		}

		return nil
	},
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		applied, err := db.RunMigrations(cmd.Context(), cfg.DB.Path, migrations.All())
		for _, m := range applied {
			presenter.Info(fmt.Sprintf("[✓] %d - %s", m.Version, m.Description))
		}
		if err != nil {
			return errors.Wrap(err, "failed to run migrations")
		}

		if len(applied) == 0 {
			presenter.Info("Database is up to date")
			return nil
		}
		presenter.Success(fmt.Sprintf("Applied %d migration(s)", len(applied)))
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied database migration.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applied, err := db.GetMigrationStatus(ctx, cfg.DB.Path)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}

		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return nil
		}

		lastVersion := applied[len(applied)-1]

		var description string
		for _, m := range migrations.All() {
			if m.Version == lastVersion {
				description = m.Description
				break
			}
		}

		presenter.Info(fmt.Sprintf("Rolling back migration %d: %s", lastVersion, description))

		if err := db.RollbackMigration(ctx, cfg.DB.Path, migrations.All()); err != nil {
			return errors.Wrap(err, "failed to rollback migration")
		}

		presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", lastVersion))

		return nil
	},
}

var dbPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove cached results older than the configured max age",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		maxAge := cfg.Cache.MaxAge
		if cmd.Flags().Changed("max-age") {
			maxAge, _ = cmd.Flags().GetDuration("max-age")
		}

		sqlDB, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		removed, err := cache.New(sqlDB).Purge(ctx, maxAge)
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Removed %d cached result(s)", removed))
		return nil
	},
}

func init() {
	dbPurgeCmd.Flags().Duration("max-age", 0, "Remove entries older than this (defaults to cache.max_age)")

	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbRollbackCmd)
	dbCmd.AddCommand(dbPurgeCmd)
}
