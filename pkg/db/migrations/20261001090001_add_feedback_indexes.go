package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/pkg/errors"
)

func Migration20261001090001AddFeedbackIndexes() db.Migration {
	return db.Migration{
		Version:     20261001090001,
		Description: "Add feedback lookup indexes",
		Up: func(tx *sql.Tx) error {
			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_feedback_skill_id ON feedback(skill_id)",
				"CREATE INDEX IF NOT EXISTS idx_feedback_created_at ON feedback(created_at DESC)",
			}
			for _, stmt := range indexes {
				if _, err := tx.Exec(stmt); err != nil {
					return errors.Wrapf(err, "failed to create index: %s", stmt)
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			for _, name := range []string{"idx_feedback_created_at", "idx_feedback_skill_id"} {
				if _, err := tx.Exec("DROP INDEX IF EXISTS " + name); err != nil {
					return errors.Wrapf(err, "failed to drop index %s", name)
				}
			}
			return nil
		},
	}
}
