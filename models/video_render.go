package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VideoRender tracks one submission to the external render service. A project
// accumulates one row per submission across retries; render_job_id is the
// unique external correlation key the completion callback arrives with.
type VideoRender struct {
	ID           uuid.UUID       `json:"id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	UserID       uuid.UUID       `json:"user_id"`
	RenderJobID  string          `json:"render_job_id"`
	Status       RenderStatus    `json:"status"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	ArtifactURL  *string         `json:"artifact_url,omitempty"` // Ephemeral URL supplied by the render service
	OutputURL    *string         `json:"output_url,omitempty"`   // Durable copy in our storage
	Composition  json.RawMessage `json:"composition,omitempty"`  // Exact submitted composition, kept for debugging
	SubmittedAt  time.Time       `json:"submitted_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
