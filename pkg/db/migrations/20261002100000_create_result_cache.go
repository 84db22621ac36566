package migrations

import (
	"database/sql"

	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/pkg/errors"
)

// Migration20261002100000CreateResultCache creates the fingerprint-keyed result cache.
func Migration20261002100000CreateResultCache() db.Migration {
	return db.Migration{
		Version:     20261002100000,
		Description: "Create result_cache table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS result_cache (
					kind TEXT NOT NULL,
					fingerprint TEXT NOT NULL,
					payload TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					PRIMARY KEY (kind, fingerprint)
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create result_cache table")
			}
			if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_result_cache_created_at ON result_cache(created_at)"); err != nil {
				return errors.Wrap(err, "failed to create result_cache index")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS result_cache"); err != nil {
				return errors.Wrap(err, "failed to drop result_cache table")
			}
			return nil
		},
	}
}
