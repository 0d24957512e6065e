// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package decompose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// schemas are keyed by report kind; each mirrors the corresponding
// struct in internal/types/decomposition.go.
var schemas = map[string]string{
	"complexity": `{
		"type": "object",
		"required": ["complexity_level", "estimated_minutes"],
		"properties": {
			"complexity_level": {"type": "string"},
			"estimated_minutes": {"type": "number"},
			"resource_needs": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	"dependency": `{
		"type": "object",
		"properties": {
			"sequential_steps": {"type": "array", "items": {"type": "string"}},
			"parallel_groups": {"type": "array", "items": {"type": "array", "items": {"type": "integer"}}},
			"dependency_rules": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["task_index", "depends_on_index"],
					"properties": {
						"task_index": {"type": "integer"},
						"depends_on_index": {"type": "integer"}
					}
				}
			}
		}
	}`,
	"skills": `{
		"type": "object",
		"properties": {
			"primary_skills": {"type": "array", "items": {"type": "string"}},
			"tools_required": {"type": "array", "items": {"type": "string"}}
		}
	}`,
	"subtasks": `{
		"type": "object",
		"required": ["subtasks"],
		"properties": {
			"subtasks": {
				"type": "array",
				"minItems": 1,
				"items": {
					"type": "object",
					"required": ["content"],
					"properties": {"content": {"type": "string", "minLength": 1}}
				}
			}
		}
	}`,
}

// Validate checks jsonDoc against the named schema and reports all
// validation errors joined into one message.
func Validate(kind, jsonDoc string) error {
	schemaStr, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("unknown decomposition report kind %q", kind)
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaStr)
	docLoader := gojsonschema.NewStringLoader(jsonDoc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", kind, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%s report failed validation: %s", kind, strings.Join(msgs, "; "))
	}
	return nil
}

// ValidateAs validates jsonDoc against kind's schema, then unmarshals it
// into out.
func ValidateAs(kind, jsonDoc string, out any) error {
	if err := Validate(kind, jsonDoc); err != nil {
		return err
	}
	return json.Unmarshal([]byte(jsonDoc), out)
}
