package feedback

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillgraph/pkg/types/catalog"
	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// JSONField is a generic type for handling JSON marshaling/unmarshaling in database
type JSONField[T any] struct {
	Data T
}

// Scan implements the sql.Scanner interface for reading from database
func (j *JSONField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.Errorf("cannot scan %T into JSONField", value)
		}
		bytes = []byte(str)
	}

	return json.Unmarshal(bytes, &j.Data)
}

// Value implements the driver.Valuer interface for writing to database
func (j JSONField[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// dbFeedbackRecord represents the feedback table structure
type dbFeedbackRecord struct {
	ID            string              `db:"id"`
	SkillID       string              `db:"skill_id"`
	StepStage     string              `db:"step_stage"`
	ExpectedTags  JSONField[[]string] `db:"expected_tags"`
	MatchedTags   JSONField[[]string] `db:"matched_tags"`
	Rating        float64             `db:"rating"`
	CandidateType string              `db:"candidate_type"`
	CreatedAt     time.Time           `db:"created_at"`
}

// toFeedback converts a database record to the domain model
func (r *dbFeedbackRecord) toFeedback() workflow.Feedback {
	f := workflow.Feedback{
		ID:            r.ID,
		SkillID:       r.SkillID,
		StepStage:     catalog.ParseStage(r.StepStage),
		ExpectedTags:  r.ExpectedTags.Data,
		MatchedTags:   r.MatchedTags.Data,
		Rating:        r.Rating,
		CandidateType: workflow.CandidateType(r.CandidateType),
		CreatedAt:     r.CreatedAt,
	}
	if f.ExpectedTags == nil {
		f.ExpectedTags = []string{}
	}
	if f.MatchedTags == nil {
		f.MatchedTags = []string{}
	}
	return f
}

func fromFeedback(f workflow.Feedback) *dbFeedbackRecord {
	return &dbFeedbackRecord{
		ID:            f.ID,
		SkillID:       f.SkillID,
		StepStage:     string(f.StepStage),
		ExpectedTags:  JSONField[[]string]{Data: catalog.NormalizeTags(f.ExpectedTags)},
		MatchedTags:   JSONField[[]string]{Data: catalog.NormalizeTags(f.MatchedTags)},
		Rating:        f.Rating,
		CandidateType: string(f.CandidateType),
		CreatedAt:     f.CreatedAt,
	}
}
