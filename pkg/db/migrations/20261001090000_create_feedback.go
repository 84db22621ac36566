package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261001090000CreateFeedback creates the feedback table.
// Tag lists are stored as JSON arrays.
func Migration20261001090000CreateFeedback() db.Migration {
	return db.Migration{
		Version:     20261001090000,
		Description: "Create feedback table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS feedback (
					id TEXT PRIMARY KEY,
					skill_id TEXT NOT NULL,
					step_stage TEXT NOT NULL,
					expected_tags TEXT NOT NULL DEFAULT '[]',
					matched_tags TEXT NOT NULL DEFAULT '[]',
					rating REAL NOT NULL CHECK (rating >= -1 AND rating <= 1),
					candidate_type TEXT NOT NULL,
					created_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create feedback table")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS feedback"); err != nil {
				return errors.Wrap(err, "failed to drop feedback table")
			}
			return nil
		},
	}
}
