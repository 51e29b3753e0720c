// Package validation holds JSON schema validation for documents that
// cross the import/export surface.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// artifactImportSchema describes the minimum acceptable artifact export
// document: a non-empty html field and a non-empty name. Everything else
// (id, original input, timestamp) is regenerated or optional.
const artifactImportSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["html", "name"],
	"properties": {
		"id": {"type": "string"},
		"name": {"type": "string", "minLength": 1},
		"html": {"type": "string", "minLength": 1},
		"originalImage": {"type": ["string", "null"]},
		"timestamp": {"type": "string"}
	}
}`

type ImportValidator struct {
	schema *gojsonschema.Schema
}

func NewImportValidator() (*ImportValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(artifactImportSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile artifact import schema: %w", err)
	}
	return &ImportValidator{schema: schema}, nil
}

type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateArtifactDocument checks a raw import payload against the
// artifact schema without mutating anything.
func (v *ImportValidator) ValidateArtifactDocument(raw []byte) *ValidationResult {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &ValidationResult{Valid: false, Errors: []string{err.Error()}}
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	out := &ValidationResult{Valid: false}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, desc.String())
	}
	return out
}
