package models

import (
	"time"

	"github.com/google/uuid"
)

// GenerationRequest is ephemeral: it lives for one generation attempt,
// or sits in the pending slot while the caller authenticates.
type GenerationRequest struct {
	Prompt     string `json:"prompt,omitempty" validate:"omitempty,max=20000"`
	FileBase64 string `json:"file_base64,omitempty"`
	FileName   string `json:"file_name,omitempty" validate:"omitempty,max=255"`
	MimeType   string `json:"mime_type,omitempty" validate:"omitempty,max=100"`
}

// HasInput reports whether there is anything to generate from.
func (r GenerationRequest) HasInput() bool {
	return r.Prompt != "" || r.FileBase64 != ""
}

type GenerationResult struct {
	Artifact *Artifact `json:"artifact,omitempty"`
	// HTML carries the generated document even when persistence failed,
	// so the caller can still show it without claiming it was saved.
	HTML     string        `json:"html,omitempty"`
	Saved    bool          `json:"saved"`
	Duration time.Duration `json:"-"`
}

type GenerationStatus struct {
	InFlight bool       `json:"in_flight"`
	ActiveID *uuid.UUID `json:"active_id,omitempty"`
}
