package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dream-anchor/creatoros-reels/internal/composer"
	"github.com/dream-anchor/creatoros-reels/models"
	"github.com/dream-anchor/creatoros-reels/utils"
)

// StartRender godoc
// @Summary Render the reel
// @Description Builds a deterministic composition from the included segments and submits it to the render service. Completion arrives asynchronously on the render callback.
// @Tags render
// @Produce json
// @Param id path string true "Project ID"
// @Success 202 {object} map[string]interface{} "Render submitted"
// @Failure 400 {object} map[string]interface{} "No included segments, missing source or illegal project state"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 500 {object} map[string]interface{} "Render submission failed"
// @Router /projects/{id}/render [post]
func (h *ApplicationHandler) StartRender(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	if project.SourceURL == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Project has no source video URL")
	}
	if !project.Status.CanTransitionTo(models.ProjectRendering) {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot start render from status %s", project.Status))
	}

	segments, err := h.listProjectSegments(projectID)
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to fetch segments for render")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not retrieve segments")
	}
	included := make([]models.VideoSegment, 0, len(segments))
	for _, seg := range segments {
		if seg.IsIncluded {
			included = append(included, seg)
		}
	}
	if len(included) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Project has no included segments to render")
	}

	comp, err := composer.Build(included, project.SubtitleStyle, project.TransitionStyle, project.SourceURL, h.CallbackURL)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Could not build composition: %v", err))
	}

	jobID, err := h.Renderer.Submit(c.UserContext(), comp)
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Render submission failed")
		h.markProjectFailed(project, fmt.Sprintf("render submission: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Render submission failed: %v", err))
	}

	snapshot, err := json.Marshal(comp)
	if err != nil {
		h.markProjectFailed(project, fmt.Sprintf("composition encode: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not encode composition")
	}

	now := time.Now().UTC()
	renderRow := map[string]interface{}{
		"project_id":    projectID,
		"user_id":       project.UserID,
		"render_job_id": jobID,
		"status":        models.RenderQueued,
		"composition":   json.RawMessage(snapshot),
		"submitted_at":  now,
		"created_at":    now,
		"updated_at":    now,
	}
	if _, _, err := h.DB.From("video_renders").
		Insert(renderRow, false, "", "representation", "").
		Execute(); err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to record render job")
		h.markProjectFailed(project, fmt.Sprintf("render record: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not record render job")
	}

	if err := h.transitionProject(project, models.ProjectRendering, map[string]interface{}{
		"render_job_id": jobID,
		"error_message": nil,
	}); err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, err.Error())
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id":    projectID,
		"render_job_id": jobID,
		"segments":      len(included),
	}).Info("Render submitted")
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"render_job_id": jobID,
		"status":        models.ProjectRendering,
	})
}
