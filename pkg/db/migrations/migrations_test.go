package migrations

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillgraph/pkg/db"
)

func TestAllMigrations(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	all := All()
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Version, all[i].Version, "migrations are listed in timestamp order")
	}

	runner := db.NewMigrationRunner(sqlDB)
	applied, err := runner.Run(ctx, all)
	require.NoError(t, err)
	assert.Len(t, applied, len(all))

	for _, table := range []string{"feedback", "result_cache"} {
		var exists bool
		err := sqlDB.Get(&exists, "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name=?", table)
		require.NoError(t, err)
		assert.True(t, exists, table)
	}

	for range all {
		require.NoError(t, runner.Rollback(ctx, all))
	}
	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	var exists bool
	require.NoError(t, sqlDB.Get(&exists, "SELECT COUNT(*) > 0 FROM sqlite_master WHERE type='table' AND name='feedback'"))
	assert.False(t, exists)
}
