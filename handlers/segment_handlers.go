package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/dream-anchor/creatoros-reels/utils"
)

// ListSegments godoc
// @Summary List segments for a project
// @Description Retrieves the selected segments of a project, ordered by segment index.
// @Tags segments
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Segments retrieved successfully"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{projectId}/segments [get]
func (h *ApplicationHandler) ListSegments(c *fiber.Ctx) error {
	projectID := c.Params("projectId")

	if _, err := h.getProjectByID(projectID); err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	segments, err := h.listProjectSegments(projectID)
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to fetch segments")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not retrieve segments")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, segments)
}

// UpdateSegment godoc
// @Summary Edit a segment
// @Description Adjusts a segment's bounds, subtitle, order or inclusion. Any edit marks the segment as user-modified.
// @Tags segments
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param segmentId path string true "Segment ID"
// @Success 200 {object} map[string]interface{} "Segment updated successfully"
// @Failure 400 {object} map[string]interface{} "Invalid field value"
// @Failure 404 {object} map[string]interface{} "Segment not found"
// @Router /projects/{projectId}/segments/{segmentId} [patch]
func (h *ApplicationHandler) UpdateSegment(c *fiber.Ctx) error {
	projectID := c.Params("projectId")
	segmentID := c.Params("segmentId")

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	segments, err := h.listProjectSegments(projectID)
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to fetch segments")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not retrieve segments")
	}
	found := false
	var currentStartMs, currentEndMs int64
	for _, seg := range segments {
		if seg.ID.String() == segmentID {
			found = true
			currentStartMs = seg.StartMs
			currentEndMs = seg.EndMs
			break
		}
	}
	if !found {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Segment with ID %s not found", segmentID))
	}

	updates := make(map[string]interface{})

	if val, ok := payload["is_included"]; ok {
		b, typeOK := val.(bool)
		if !typeOK {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'is_included' must be a boolean")
		}
		updates["is_included"] = b
	}

	if val, ok := payload["subtitle"]; ok {
		str, typeOK := val.(string)
		if !typeOK {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'subtitle' must be a string")
		}
		updates["subtitle"] = str
	}

	if val, ok := payload["segment_index"]; ok {
		num, typeOK := val.(float64)
		if !typeOK || num < 0 {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'segment_index' must be a non-negative number")
		}
		newIndex := int(num)
		for _, seg := range segments {
			if seg.ID.String() != segmentID && seg.IsIncluded && seg.SegmentIndex == newIndex {
				return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("'segment_index' %d is already taken by another included segment", newIndex))
			}
		}
		updates["segment_index"] = newIndex
	}

	startMs := currentStartMs
	endMs := currentEndMs
	if val, ok := payload["start_ms"]; ok {
		num, typeOK := val.(float64)
		if !typeOK || num < 0 {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'start_ms' must be a non-negative number")
		}
		startMs = int64(num)
		updates["start_ms"] = startMs
	}
	if val, ok := payload["end_ms"]; ok {
		num, typeOK := val.(float64)
		if !typeOK || num <= 0 {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'end_ms' must be a positive number")
		}
		endMs = int64(num)
		updates["end_ms"] = endMs
	}
	if endMs <= startMs {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Segment end_ms must be greater than start_ms")
	}

	if len(updates) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No updatable fields provided")
	}
	updates["is_user_modified"] = true

	_, count, err := h.DB.From("video_segments").
		Update(updates, "", "exact").
		Eq("id", segmentID).
		Eq("project_id", projectID).
		Execute()
	if err != nil {
		h.Logger.WithError(err).WithField("segment_id", segmentID).Error("Failed to update segment")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not update segment: %v", err))
	}
	if count == 0 {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Segment with ID %s not found", segmentID))
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id": projectID,
		"segment_id": segmentID,
	}).Info("Segment updated by user")
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"id": segmentID, "updated": true})
}
