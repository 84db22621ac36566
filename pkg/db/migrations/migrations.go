// Package migrations contains all database migrations for skillgraph.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jingkaihe/skillgraph/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		// Feedback store
		Migration20261001090000CreateFeedback(),
		Migration20261001090001AddFeedbackIndexes(),
		// Result cache
		Migration20261002100000CreateResultCache(),
	}
}
