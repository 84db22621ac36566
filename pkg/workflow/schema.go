package workflow

import (
	"github.com/invopop/jsonschema"

	"github.com/jingkaihe/skillgraph/pkg/types/workflow"
)

// GenerateSchema reflects the JSON schema of T with every type inlined
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T

	return reflector.Reflect(v)
}

// PlanSchema returns the JSON schema of plan files
func PlanSchema() *jsonschema.Schema {
	s := GenerateSchema[workflow.Plan]()
	s.Title = "skillgraph plan"
	s.Description = "An ordered list of steps to map onto catalog skills"
	return s
}
