package validation

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema passes when the response is valid JSON conforming to a JSON
// Schema document.
type JSONSchema struct {
	schema *jsonschema.Schema
	source string
}

// NewJSONSchema compiles a JSON Schema from its JSON source.
func NewJSONSchema(schemaJSON string) (*JSONSchema, error) {
	schema, err := jsonschema.CompileString("schema.json", schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("invalid JSON schema: %w", err)
	}
	return &JSONSchema{schema: schema, source: schemaJSON}, nil
}

func (v *JSONSchema) Validate(response string) Outcome {
	var value any
	if err := json.Unmarshal([]byte(response), &value); err != nil {
		return Outcome{
			Passed: false,
			Details: map[string]any{
				"error": fmt.Sprintf("response is not valid JSON: %v", err),
			},
		}
	}
	if err := v.schema.Validate(value); err != nil {
		return Outcome{
			Passed: false,
			Details: map[string]any{
				"error": err.Error(),
			},
		}
	}
	return Outcome{Passed: true, Details: map[string]any{"valid": true}}
}

func (v *JSONSchema) Describe() string {
	return "conforms to JSON schema"
}
