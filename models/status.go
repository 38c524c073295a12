package models

// ProjectStatus is the pipeline state of a VideoProject. Transitions are
// restricted to the table below; anything else is a programming error and is
// rejected by the handlers before any row is written.
type ProjectStatus string

const (
	ProjectUploaded          ProjectStatus = "uploaded"
	ProjectAnalyzingFrames   ProjectStatus = "analyzing_frames"
	ProjectTranscribing      ProjectStatus = "transcribing"
	ProjectSelectingSegments ProjectStatus = "selecting_segments"
	ProjectSegmentsReady     ProjectStatus = "segments_ready"
	ProjectRendering         ProjectStatus = "rendering"
	ProjectRenderComplete    ProjectStatus = "render_complete"
	ProjectFailed            ProjectStatus = "failed"
)

// projectTransitions lists the legal forward edges. Self-edges allow a stage
// to be re-invoked, and "failed" points back at every stage entry so a failed
// attempt can be retried by calling the stage again.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectUploaded:          {ProjectAnalyzingFrames, ProjectFailed},
	ProjectAnalyzingFrames:   {ProjectAnalyzingFrames, ProjectTranscribing, ProjectFailed},
	ProjectTranscribing:      {ProjectTranscribing, ProjectSelectingSegments, ProjectFailed},
	ProjectSelectingSegments: {ProjectSelectingSegments, ProjectSegmentsReady, ProjectFailed},
	ProjectSegmentsReady:     {ProjectSelectingSegments, ProjectRendering, ProjectFailed},
	ProjectRendering:         {ProjectRendering, ProjectRenderComplete, ProjectFailed},
	ProjectRenderComplete:    {ProjectRendering},
	ProjectFailed:            {ProjectAnalyzingFrames, ProjectTranscribing, ProjectSelectingSegments, ProjectRendering},
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	_, ok := projectTransitions[s]
	return ok
}

// Terminal reports whether s is an end state for the current attempt.
func (s ProjectStatus) Terminal() bool {
	return s == ProjectRenderComplete || s == ProjectFailed
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	for _, t := range projectTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// RenderStatus mirrors the external render job's lifecycle on a VideoRender
// row. Once terminal, no callback delivery may change the row again; only
// the delivery that settled it may finish or demote its own settlement.
type RenderStatus string

const (
	RenderQueued    RenderStatus = "queued"
	RenderRendering RenderStatus = "rendering"
	RenderDone      RenderStatus = "done"
	RenderFailed    RenderStatus = "failed"
)

// Terminal reports whether s is a final render state.
func (s RenderStatus) Terminal() bool {
	return s == RenderDone || s == RenderFailed
}

// SubtitleStyle selects the overlay treatment for segment subtitles.
type SubtitleStyle string

const (
	SubtitleBoldCentered     SubtitleStyle = "bold-centered"
	SubtitleBottomBar        SubtitleStyle = "bottom-bar"
	SubtitleKaraokeHighlight SubtitleStyle = "karaoke-highlight"
	SubtitleMinimalLeft      SubtitleStyle = "minimal-left"
)

// Valid reports whether s is a known subtitle style.
func (s SubtitleStyle) Valid() bool {
	switch s {
	case SubtitleBoldCentered, SubtitleBottomBar, SubtitleKaraokeHighlight, SubtitleMinimalLeft:
		return true
	}
	return false
}

// TransitionStyle selects how consecutive clips are joined. "cut" means no
// transition effect at all.
type TransitionStyle string

const (
	TransitionCut   TransitionStyle = "cut"
	TransitionFade  TransitionStyle = "fade"
	TransitionSlide TransitionStyle = "slide"
	TransitionZoom  TransitionStyle = "zoom"
)

// Valid reports whether t is a known transition style.
func (t TransitionStyle) Valid() bool {
	switch t {
	case TransitionCut, TransitionFade, TransitionSlide, TransitionZoom:
		return true
	}
	return false
}
