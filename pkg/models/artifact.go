package models

import (
	"time"

	"github.com/google/uuid"
)

type Artifact struct {
	ID            uuid.UUID `json:"id" db:"id"`
	OwnerID       uuid.UUID `json:"owner_id" db:"owner_id"`
	Name          string    `json:"name" db:"name" validate:"required,min=1,max=255"`
	HTML          string    `json:"html" db:"html" validate:"required"`
	OriginalInput *string   `json:"original_input,omitempty" db:"original_input"` // data URI of the uploaded file
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// ArtifactExport is the document written by the export surface and read
// back by import. Round-tripping preserves html and name; id and
// timestamp are regenerated on import.
type ArtifactExport struct {
	ID            string  `json:"id,omitempty"`
	Name          string  `json:"name"`
	HTML          string  `json:"html"`
	OriginalInput *string `json:"originalImage,omitempty"`
	Timestamp     string  `json:"timestamp,omitempty"`
}

type ArtifactListResponse struct {
	Artifacts []Artifact `json:"artifacts"`
	Total     int        `json:"total"`
	Stale     bool       `json:"stale,omitempty"`
}
