package models

import (
	"time"

	"github.com/google/uuid"
)

// VideoSegment is one selected sub-clip of a project's source video.
// segment_index is the 0-based position on the output timeline; start_ms and
// end_ms are on the source timeline and may overlap other segments' ranges.
type VideoSegment struct {
	ID             uuid.UUID `json:"id"`
	ProjectID      uuid.UUID `json:"project_id"`
	UserID         uuid.UUID `json:"user_id"`
	SegmentIndex   int       `json:"segment_index"`
	StartMs        int64     `json:"start_ms"`
	EndMs          int64     `json:"end_ms"`
	Score          *float64  `json:"score,omitempty"`     // Carried from frame analysis
	Role           *string   `json:"role,omitempty"`      // hook | context | buildup | climax | cta
	Rationale      *string   `json:"rationale,omitempty"` // Why the selector picked this range
	Excerpt        *string   `json:"excerpt,omitempty"`   // Transcript excerpt
	Subtitle       string    `json:"subtitle"`
	IsIncluded     bool      `json:"is_included"`
	IsUserModified bool      `json:"is_user_modified"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DurationMs returns the segment's length on the output timeline.
func (s *VideoSegment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// NarrativeRoles are the advisory story-structure tags a segment may carry.
var NarrativeRoles = []string{"hook", "context", "buildup", "climax", "cta"}

// ValidRole reports whether role is one of the known narrative roles.
func ValidRole(role string) bool {
	for _, r := range NarrativeRoles {
		if r == role {
			return true
		}
	}
	return false
}
