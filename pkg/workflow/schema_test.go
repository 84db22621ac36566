package workflow

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanSchema(t *testing.T) {
	s := PlanSchema()
	require.NotNil(t, s)
	assert.Equal(t, "skillgraph plan", s.Title)

	steps, ok := s.Properties.Get("steps")
	require.True(t, ok)
	assert.Equal(t, "array", steps.Type)
	require.NotNil(t, steps.Items)

	stage, ok := steps.Items.Properties.Get("stage")
	require.True(t, ok)
	assert.Contains(t, stage.Enum, "implement")
	assert.Contains(t, steps.Items.Required, "stage")

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outputs"`)
}
