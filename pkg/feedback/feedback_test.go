package feedback

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillgraph/pkg/db"
	"github.com/jingkaihe/skillgraph/pkg/db/migrations"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	sqlDB, err := db.Open(ctx, filepath.Join(t.TempDir(), "storage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	_, err = db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All())
	require.NoError(t, err)

	store := NewStore(sqlDB)
	clock := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return store
}

func TestStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	added, err := store.Add(ctx, workflow.Feedback{
		SkillID:       " go-builder ",
		StepStage:     "Implement",
		ExpectedTags:  []string{"Code", "go", "code"},
		MatchedTags:   []string{"code"},
		Rating:        0.5,
		CandidateType: workflow.CandidateAlternative,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "go-builder", added.SkillID)
	assert.Equal(t, catalog.StageImplement, added.StepStage)
	assert.Equal(t, []string{"code", "go"}, added.ExpectedTags)
	assert.False(t, added.CreatedAt.IsZero())

	loaded, err := store.Get(ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, loaded.ID)
	assert.Equal(t, added.SkillID, loaded.SkillID)
	assert.Equal(t, added.StepStage, loaded.StepStage)
	assert.Equal(t, added.ExpectedTags, loaded.ExpectedTags)
	assert.Equal(t, []string{"code"}, loaded.MatchedTags)
	assert.Equal(t, 0.5, loaded.Rating)
	assert.Equal(t, workflow.CandidateAlternative, loaded.CandidateType)
	assert.True(t, added.CreatedAt.Equal(loaded.CreatedAt))
}

func TestStore_AddValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name           string
		input          workflow.Feedback
		expectedRating float64
		expectedType   workflow.CandidateType
		errorMsg       string
	}{
		{
			name:           "rating clamped high",
			input:          workflow.Feedback{SkillID: "a", Rating: 3},
			expectedRating: 1,
			expectedType:   workflow.CandidateSelected,
		},
		{
			name:           "rating clamped low",
			input:          workflow.Feedback{SkillID: "a", Rating: -2, CandidateType: workflow.CandidateAlternative},
			expectedRating: -1,
			expectedType:   workflow.CandidateAlternative,
		},
		{
			name:     "missing skill",
			input:    workflow.Feedback{Rating: 1},
			errorMsg: "skill id is required",
		},
		{
			name:     "nan rating",
			input:    workflow.Feedback{SkillID: "a", Rating: math.NaN()},
			errorMsg: "rating must be a number",
		},
		{
			name:     "unknown candidate type",
			input:    workflow.Feedback{SkillID: "a", CandidateType: "winner"},
			errorMsg: `invalid candidate type "winner"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, err := store.Add(ctx, tt.input)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRating, added.Rating)
			assert.Equal(t, tt.expectedType, added.CandidateType)
			assert.Equal(t, catalog.StageOther, added.StepStage)
		})
	}
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var ids []string
	for _, f := range []workflow.Feedback{
		{SkillID: "a", StepStage: catalog.StagePlan, Rating: 1},
		{SkillID: "b", StepStage: catalog.StageVerify, Rating: -1},
		{SkillID: "a", StepStage: catalog.StageVerify, Rating: 0.5},
		{SkillID: "c", StepStage: catalog.StagePlan, Rating: 0},
	} {
		added, err := store.Add(ctx, f)
		require.NoError(t, err)
		ids = append(ids, added.ID)
	}

	tests := []struct {
		name     string
		options  ListOptions
		expected []string
	}{
		{name: "all newest first", options: ListOptions{}, expected: []string{ids[3], ids[2], ids[1], ids[0]}},
		{name: "by skill", options: ListOptions{SkillID: "a"}, expected: []string{ids[2], ids[0]}},
		{name: "by stage", options: ListOptions{StepStage: catalog.StageVerify}, expected: []string{ids[2], ids[1]}},
		{name: "paginated", options: ListOptions{Limit: 2, Offset: 1}, expected: []string{ids[2], ids[1]}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := store.List(ctx, tt.options)
			require.NoError(t, err)

			got := make([]string, len(records))
			for i, r := range records {
				got[i] = r.ID
			}
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("for skills", func(t *testing.T) {
		records, err := store.ListForSkills(ctx, []string{"a", "c"})
		require.NoError(t, err)
		assert.Len(t, records, 3)
		for _, r := range records {
			assert.Contains(t, []string{"a", "c"}, r.SkillID)
		}

		records, err = store.ListForSkills(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	added, err := store.Add(ctx, workflow.Feedback{SkillID: "a", Rating: 1})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, added.ID))

	_, err = store.Get(ctx, added.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = store.Delete(ctx, added.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}
