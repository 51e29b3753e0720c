package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArtifactDocument(t *testing.T) {
	v, err := NewImportValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		raw   string
		valid bool
	}{
		{
			name:  "complete document",
			raw:   `{"id":"abc","name":"Meu App","html":"<!DOCTYPE html><html></html>","timestamp":"2026-08-29T12:00:00Z"}`,
			valid: true,
		},
		{
			name:  "minimal document",
			raw:   `{"name":"x","html":"<p>hi</p>"}`,
			valid: true,
		},
		{
			name:  "missing html",
			raw:   `{"name":"x"}`,
			valid: false,
		},
		{
			name:  "missing name",
			raw:   `{"html":"<p>hi</p>"}`,
			valid: false,
		},
		{
			name:  "empty html",
			raw:   `{"name":"x","html":""}`,
			valid: false,
		},
		{
			name:  "empty name",
			raw:   `{"name":"","html":"<p>hi</p>"}`,
			valid: false,
		},
		{
			name:  "not an object",
			raw:   `["html","name"]`,
			valid: false,
		},
		{
			name:  "malformed json",
			raw:   `{"name":`,
			valid: false,
		},
		{
			name:  "null original image allowed",
			raw:   `{"name":"x","html":"<p>hi</p>","originalImage":null}`,
			valid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.ValidateArtifactDocument([]byte(tt.raw))
			assert.Equal(t, tt.valid, result.Valid)
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
			}
		})
	}
}
