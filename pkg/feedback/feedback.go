// Package feedback persists human ratings of assembled workflow candidates.
// Records are read back by the assembler's feedback bias term.
package feedback

import (
	"context"
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillgraph/pkg/logger"
	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// ErrNotFound is returned when a feedback record does not exist
var ErrNotFound = errors.New("feedback not found")

const selectColumns = `SELECT id, skill_id, step_stage, expected_tags, matched_tags,
	rating, candidate_type, created_at FROM feedback`

// ListOptions filters and paginates List
type ListOptions struct {
	SkillID   string
	StepStage catalog.Stage
	Since     *time.Time
	Limit     int
	Offset    int
}

// Store is a SQLite-backed feedback store
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewStore creates a feedback store on an opened and migrated database
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Add validates and inserts a record, assigning its id and timestamp.
// Ratings outside [-1, 1] are clamped.
func (s *Store) Add(ctx context.Context, f workflow.Feedback) (workflow.Feedback, error) {
	f.SkillID = strings.TrimSpace(f.SkillID)
	if f.SkillID == "" {
		return workflow.Feedback{}, errors.New("skill id is required")
	}
	if math.IsNaN(f.Rating) {
		return workflow.Feedback{}, errors.New("rating must be a number")
	}
	f.Rating = math.Max(-1, math.Min(1, f.Rating))

	switch f.CandidateType {
	case "":
		f.CandidateType = workflow.CandidateSelected
	case workflow.CandidateSelected, workflow.CandidateAlternative:
	default:
		return workflow.Feedback{}, errors.Errorf("invalid candidate type %q", f.CandidateType)
	}

	f.StepStage = catalog.ParseStage(string(f.StepStage))
	f.ID = uuid.New().String()
	f.CreatedAt = s.now().UTC()

	record := fromFeedback(f)
	query := `
		INSERT INTO feedback (
			id, skill_id, step_stage, expected_tags, matched_tags,
			rating, candidate_type, created_at
		) VALUES (
			:id, :skill_id, :step_stage, :expected_tags, :matched_tags,
			:rating, :candidate_type, :created_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, record); err != nil {
		return workflow.Feedback{}, errors.Wrap(err, "failed to save feedback")
	}

	logger.WithSkill(ctx, f.SkillID).WithField("rating", f.Rating).Debug("feedback recorded")
	return record.toFeedback(), nil
}

// Get loads a single record by id
func (s *Store) Get(ctx context.Context, id string) (workflow.Feedback, error) {
	var record dbFeedbackRecord
	err := s.db.GetContext(ctx, &record, selectColumns+" WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return workflow.Feedback{}, errors.Wrapf(ErrNotFound, "id %s", id)
		}
		return workflow.Feedback{}, errors.Wrap(err, "failed to load feedback")
	}
	return record.toFeedback(), nil
}

// List returns records newest first
func (s *Store) List(ctx context.Context, options ListOptions) ([]workflow.Feedback, error) {
	conditions := []string{}
	args := map[string]any{}

	if options.SkillID != "" {
		conditions = append(conditions, "skill_id = :skill_id")
		args["skill_id"] = options.SkillID
	}
	if options.StepStage != "" {
		conditions = append(conditions, "step_stage = :step_stage")
		args["step_stage"] = string(catalog.ParseStage(string(options.StepStage)))
	}
	if options.Since != nil {
		conditions = append(conditions, "created_at >= :since")
		args["since"] = options.Since.UTC()
	}

	query := selectColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	if options.Limit > 0 {
		query += " LIMIT :limit"
		args["limit"] = options.Limit

		if options.Offset > 0 {
			query += " OFFSET :offset"
			args["offset"] = options.Offset
		}
	}

	finalQuery, argsSlice, err := sqlx.Named(query, args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build named query")
	}
	return s.selectRecords(ctx, s.db.Rebind(finalQuery), argsSlice...)
}

// ListForSkills returns every record referencing one of the given skills
func (s *Store) ListForSkills(ctx context.Context, skillIDs []string) ([]workflow.Feedback, error) {
	if len(skillIDs) == 0 {
		return []workflow.Feedback{}, nil
	}

	query, args, err := sqlx.In(selectColumns+" WHERE skill_id IN (?) ORDER BY created_at DESC, id ASC", skillIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build skill filter")
	}
	return s.selectRecords(ctx, s.db.Rebind(query), args...)
}

// Delete removes a record by id
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "failed to delete feedback")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to check deleted rows")
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "id %s", id)
	}
	return nil
}

func (s *Store) selectRecords(ctx context.Context, query string, args ...any) ([]workflow.Feedback, error) {
	var records []dbFeedbackRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query feedback")
	}

	out := make([]workflow.Feedback, len(records))
	for i := range records {
		out[i] = records[i].toFeedback()
	}
	return out, nil
}
