package schema

import (
	"encoding/json"
	"fmt"
)

// manifestSchemaJSON describes the step manifest consumed by patch.ParseManifest.
const manifestSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["steps"],
  "properties": {
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name", "kind", "match"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "summary": {"type": "string"},
          "kind": {"type": "string", "enum": ["literal", "pattern"]},
          "match": {"type": "string", "minLength": 1},
          "replace": {"type": "string"},
          "replace_file": {"type": "string", "minLength": 1},
          "append": {"type": "string"},
          "expand": {"type": "boolean"},
          "multiline": {"type": "boolean"},
          "cardinality": {"type": "string", "enum": ["first", "all"]},
          "guard": {"type": "boolean"},
          "notes": {"type": "array", "items": {"type": "string"}},
          "report_order": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

// ManifestSchema returns the JSON schema for step manifests as a generic map.
func ManifestSchema() (map[string]any, error) {
	var schemaMap map[string]any
	if err := json.Unmarshal([]byte(manifestSchemaJSON), &schemaMap); err != nil {
		return nil, fmt.Errorf("schema: decode manifest schema: %w", err)
	}
	return schemaMap, nil
}
