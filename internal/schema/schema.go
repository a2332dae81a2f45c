// Package schema defines the target structure for contact extraction and
// validates model output against its JSON Schema.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// contactSchemaJSON is the JSON Schema every extraction response must satisfy.
// All fields are nullable: a conformant response may report that a value was
// not present in the input.
const contactSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "name":  {"type": ["string", "null"]},
    "age":   {"type": ["integer", "null"]},
    "email": {"type": ["string", "null"]}
  },
  "required": ["name", "age", "email"],
  "additionalProperties": false
}`

// Person is the structured extraction target. Nil fields mean the model
// reported the value as absent from the input.
type Person struct {
	Name  *string `json:"name"`
	Age   *int    `json:"age"`
	Email *string `json:"email"`
}

// ConformanceError indicates that a response could not be coerced into the
// contact schema (malformed JSON or a schema violation).
type ConformanceError struct {
	Detail string
}

func (e *ConformanceError) Error() string {
	return "response does not conform to contact schema: " + e.Detail
}

// compiled is the compiled contact schema, built once at package init.
var compiled = mustCompile(contactSchemaJSON, "contact.schema.json")

func mustCompile(raw, name string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// JSON returns the contact schema document for embedding in prompts.
func JSON() string {
	return contactSchemaJSON
}

// Decode parses a raw model response and validates it against the contact
// schema. Markdown code fences around the JSON object are tolerated and
// stripped. Any parse or validation problem is reported as a ConformanceError.
func Decode(raw string) (*Person, error) {
	cleaned := stripCodeFences(raw)

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &ConformanceError{Detail: err.Error()}
	}

	if err := compiled.Validate(doc); err != nil {
		return nil, &ConformanceError{Detail: err.Error()}
	}

	var p Person
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, &ConformanceError{Detail: err.Error()}
	}
	return &p, nil
}

// stripCodeFences removes a surrounding ```json ... ``` (or plain ```) block.
// Models in JSON-object mode occasionally wrap their output anyway.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:] // drop the language tag line
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
