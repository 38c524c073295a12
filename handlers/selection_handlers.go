package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dream-anchor/creatoros-reels/internal/selector"
	"github.com/dream-anchor/creatoros-reels/models"
	"github.com/dream-anchor/creatoros-reels/utils"
)

// SelectSegments godoc
// @Summary Select reel segments
// @Description Runs the reasoning model over the stored frame analysis and transcript and replaces the project's segments with the resulting plan. There is no heuristic fallback; a failed or invalid plan fails the stage.
// @Tags analysis
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Segments selected"
// @Failure 400 {object} map[string]interface{} "Missing analysis inputs or illegal project state"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 500 {object} map[string]interface{} "Selection failed"
// @Router /projects/{id}/select-segments [post]
func (h *ApplicationHandler) SelectSegments(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	frames, err := project.FrameResults()
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Stored frame analysis is unreadable")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Stored frame analysis is unreadable")
	}
	if len(frames) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Project has no frame analysis; run frame scoring first")
	}
	transcript, err := project.TranscriptData()
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Stored transcript is unreadable")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Stored transcript is unreadable")
	}
	if transcript == nil || len(transcript.Words) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Project has no transcript; run transcription first")
	}

	if err := h.transitionProject(project, models.ProjectSelectingSegments, map[string]interface{}{"error_message": nil}); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	planned, err := h.Planner.Select(c.UserContext(), selector.Request{
		Frames:            frames,
		Transcript:        *transcript,
		SourceDurationMs:  sourceDurationMs(project, frames, transcript),
		TargetDurationSec: project.TargetDuration(),
	})
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Segment selection failed")
		h.markProjectFailed(project, fmt.Sprintf("segment selection: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Segment selection failed: %v", err))
	}

	// Replace the previous plan wholesale. PostgREST offers no client
	// transaction, so the delete and insert are two requests.
	if _, _, err := h.DB.From("video_segments").
		Delete("", "").
		Eq("project_id", projectID).
		Execute(); err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to clear previous segments")
		h.markProjectFailed(project, fmt.Sprintf("segment replace: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not clear previous segments")
	}

	now := time.Now().UTC()
	rows := make([]map[string]interface{}, 0, len(planned))
	for _, seg := range planned {
		rows = append(rows, map[string]interface{}{
			"project_id":       projectID,
			"user_id":          project.UserID,
			"segment_index":    seg.SegmentIndex,
			"start_ms":         seg.StartMs,
			"end_ms":           seg.EndMs,
			"score":            seg.Score,
			"role":             seg.Role,
			"rationale":        seg.Rationale,
			"excerpt":          seg.Excerpt,
			"subtitle":         seg.Subtitle,
			"is_included":      true,
			"is_user_modified": false,
			"created_at":       now,
			"updated_at":       now,
		})
	}

	body, _, err := h.DB.From("video_segments").
		Insert(rows, false, "", "representation", "").
		Execute()
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to insert selected segments")
		h.markProjectFailed(project, fmt.Sprintf("segment insert: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store selected segments")
	}
	var inserted []models.VideoSegment
	if err := json.Unmarshal(body, &inserted); err != nil {
		h.markProjectFailed(project, fmt.Sprintf("segment decode: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not process stored segments")
	}

	if err := h.transitionProject(project, models.ProjectSegmentsReady, nil); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id": projectID,
		"segments":   len(inserted),
	}).Info("Segments selected")
	return utils.RespondWithJSON(c, fiber.StatusOK, inserted)
}

// sourceDurationMs prefers the recorded media duration, falling back to
// the furthest point covered by frames or transcript words.
func sourceDurationMs(project *models.VideoProject, frames []models.FrameResult, transcript *models.Transcript) int64 {
	if project.DurationMs != nil && *project.DurationMs > 0 {
		return *project.DurationMs
	}
	var max int64
	for _, fr := range frames {
		if fr.TimestampMs > max {
			max = fr.TimestampMs
		}
	}
	for _, w := range transcript.Words {
		if ms := int64(w.End * 1000); ms > max {
			max = ms
		}
	}
	return max
}
