package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// VideoProject represents one uploaded source video in the database, together
// with everything the pipeline has derived from it so far.
type VideoProject struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	PostID            *uuid.UUID      `json:"post_id,omitempty"` // Nullable foreign key to the content post
	SourceURL         string          `json:"source_url"`
	DurationMs        *int64          `json:"duration_ms,omitempty"`
	Width             *int            `json:"width,omitempty"`
	Height            *int            `json:"height,omitempty"`
	FileSize          *int64          `json:"file_size,omitempty"`
	FrameAnalysis     json.RawMessage `json:"frame_analysis,omitempty"` // JSONB: ordered []FrameResult, append-only
	Transcript        json.RawMessage `json:"transcript,omitempty"`     // JSONB: Transcript, replaced wholesale
	TargetDurationSec *int            `json:"target_duration_sec,omitempty"`
	SubtitleStyle     SubtitleStyle   `json:"subtitle_style"`
	TransitionStyle   TransitionStyle `json:"transition_style"`
	MusicURL          *string         `json:"music_url,omitempty"`
	RenderJobID       *string         `json:"render_job_id,omitempty"` // Most recent external render job
	OutputURL         *string         `json:"output_url,omitempty"`    // Durable rendered artifact
	Status            ProjectStatus   `json:"status"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DefaultTargetDurationSec is used when a project has no explicit target.
const DefaultTargetDurationSec = 30

// FrameResult is one analyzed frame inside frame_analysis.
type FrameResult struct {
	FrameIndex  int      `json:"frame_index"`
	TimestampMs int64    `json:"timestamp_ms"`
	Score       float64  `json:"score"` // 0-10 suitability
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	HasFace     bool     `json:"has_face"`
	HasText     bool     `json:"has_text"`
	EnergyLevel string   `json:"energy_level"` // low | medium | high
}

// Transcript is the normalized speech-to-text result stored on a project.
type Transcript struct {
	Text     string           `json:"text"`
	Words    []TranscriptWord `json:"words"`
	Language string           `json:"language"`
}

// TranscriptWord is a single word with timestamps in seconds.
type TranscriptWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// FrameResults decodes the stored frame_analysis list. A missing column
// decodes to an empty list.
func (p *VideoProject) FrameResults() ([]FrameResult, error) {
	if len(p.FrameAnalysis) == 0 {
		return nil, nil
	}
	var out []FrameResult
	if err := json.Unmarshal(p.FrameAnalysis, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TranscriptData decodes the stored transcript, or returns nil when the
// project has not been transcribed yet.
func (p *VideoProject) TranscriptData() (*Transcript, error) {
	if len(p.Transcript) == 0 {
		return nil, nil
	}
	var out Transcript
	if err := json.Unmarshal(p.Transcript, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TargetDuration returns the project's target output duration in seconds,
// falling back to the default when unset or nonsense.
func (p *VideoProject) TargetDuration() int {
	if p.TargetDurationSec != nil && *p.TargetDurationSec > 0 {
		return *p.TargetDurationSec
	}
	return DefaultTargetDurationSec
}
