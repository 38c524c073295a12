package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/dream-anchor/creatoros-reels/internal/fetch"
	"github.com/dream-anchor/creatoros-reels/internal/urlcheck"
	"github.com/dream-anchor/creatoros-reels/models"
	"github.com/dream-anchor/creatoros-reels/utils"
)

// RenderCallbackRequest is the payload the render service posts when a
// job changes state.
type RenderCallbackRequest struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RenderCallback godoc
// @Summary Receive a render status callback
// @Description Handles asynchronous notifications from the render service. Deliveries for a render already in a terminal state are acknowledged without any mutation, so retries are safe.
// @Tags render
// @Accept json
// @Produce json
// @Param callback body RenderCallbackRequest true "Render status update"
// @Success 200 {object} map[string]interface{} "Callback processed"
// @Failure 400 {object} map[string]interface{} "Invalid callback payload"
// @Failure 404 {object} map[string]interface{} "Unknown render job"
// @Failure 500 {object} map[string]interface{} "Artifact ingestion failed"
// @Router /callbacks/render [post]
func (h *ApplicationHandler) RenderCallback(c *fiber.Ctx) error {
	req := new(RenderCallbackRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse callback JSON: %v", err))
	}
	if err := validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	render, err := h.getRenderByJobID(req.ID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Unknown render job %s", req.ID))
	}

	log := h.Logger.WithFields(map[string]interface{}{
		"render_job_id": req.ID,
		"render_id":     render.ID,
		"project_id":    render.ProjectID,
		"status":        req.Status,
	})

	// Redelivered callbacks for settled renders are acknowledged as-is.
	if render.Status.Terminal() {
		log.Info("Ignoring callback for settled render")
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": render.Status})
	}

	// Every write below is a compare-and-set on the status the row was
	// read with, so two concurrent deliveries cannot both act: one claims
	// the row, the duplicate loses the claim and is acknowledged as a
	// no-op.
	switch models.RenderStatus(req.Status) {
	case models.RenderDone:
		return h.completeRender(c, render, req.URL, log)
	case models.RenderFailed:
		message := req.Error
		if message == "" {
			message = "render failed"
		}
		claimed, err := h.claimRender(render.ID.String(), render.Status, map[string]interface{}{
			"status":        models.RenderFailed,
			"error_message": message,
			"completed_at":  time.Now().UTC(),
		})
		if err != nil {
			log.WithError(err).Error("Failed to record render failure")
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not record render failure")
		}
		if !claimed {
			log.Info("Ignoring duplicate delivery for render settled concurrently")
			return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": models.RenderFailed})
		}
		if project, err := h.getProjectByID(render.ProjectID.String()); err == nil {
			h.markProjectFailed(project, message)
		} else {
			log.Warn("Render failure callback for missing project")
		}
		log.Info("Render marked failed")
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": models.RenderFailed})
	case models.RenderQueued, models.RenderRendering:
		claimed, err := h.claimRender(render.ID.String(), render.Status, map[string]interface{}{"status": req.Status})
		if err != nil {
			log.WithError(err).Error("Failed to record render progress")
			return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not record render progress")
		}
		if !claimed {
			log.Info("Ignoring stale progress for render settled concurrently")
		}
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": req.Status})
	default:
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown render status: %s", req.Status))
	}
}

// completeRender settles the render row first, then ingests the artifact
// into durable storage. Settling before downloading means exactly one
// delivery ever downloads the artifact, however many duplicates race.
func (h *ApplicationHandler) completeRender(c *fiber.Ctx, render *models.VideoRender, artifactURL string, log *logrus.Entry) error {
	failBeforeClaim := func(message string) error {
		claimed, err := h.claimRender(render.ID.String(), render.Status, map[string]interface{}{
			"status":        models.RenderFailed,
			"error_message": message,
			"completed_at":  time.Now().UTC(),
		})
		if err != nil {
			log.Error("Failed to record render failure: ", err)
		}
		if err == nil && !claimed {
			log.Info("Ignoring duplicate delivery for render settled concurrently")
			return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": models.RenderFailed})
		}
		if project, perr := h.getProjectByID(render.ProjectID.String()); perr == nil {
			h.markProjectFailed(project, message)
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, message)
	}

	if artifactURL == "" {
		return failBeforeClaim("render completed without an artifact URL")
	}
	if err := urlcheck.ValidateFetchURL(artifactURL); err != nil {
		return failBeforeClaim(fmt.Sprintf("artifact URL rejected: %v", err))
	}

	claimed, err := h.claimRender(render.ID.String(), render.Status, map[string]interface{}{
		"status":       models.RenderDone,
		"artifact_url": artifactURL,
		"completed_at": time.Now().UTC(),
	})
	if err != nil {
		log.WithError(err).Error("Failed to settle render")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not settle render")
	}
	if !claimed {
		log.Info("Ignoring duplicate delivery for render settled concurrently")
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": models.RenderDone})
	}

	// The claim winner owns the row from here; ingestion failure demotes
	// this delivery's own settlement, never another delivery's.
	failIngest := func(message string) error {
		if _, err := h.claimRender(render.ID.String(), models.RenderDone, map[string]interface{}{
			"status":        models.RenderFailed,
			"error_message": message,
		}); err != nil {
			log.Error("Failed to record ingestion failure: ", err)
		}
		if project, perr := h.getProjectByID(render.ProjectID.String()); perr == nil {
			h.markProjectFailed(project, message)
		}
		return utils.RespondWithError(c, fiber.StatusInternalServerError, message)
	}

	artifact, err := h.Downloader.Fetch(c.UserContext(), artifactURL, fetch.DefaultMaxBytes)
	if err != nil {
		return failIngest(fmt.Sprintf("artifact download: %v", err))
	}

	storagePath := fmt.Sprintf("%s/%s.mp4", render.ProjectID, render.ID)
	if _, err := h.Store.Upload(c.UserContext(), storagePath, artifact, "video/mp4"); err != nil {
		return failIngest(fmt.Sprintf("artifact upload: %v", err))
	}
	outputURL := h.Store.PublicURL(storagePath)

	if err := h.updateRender(render.ID.String(), map[string]interface{}{"output_url": outputURL}); err != nil {
		return failIngest(fmt.Sprintf("render record: %v", err))
	}

	project, err := h.getProjectByID(render.ProjectID.String())
	if err != nil {
		log.Error("Completed render for missing project ", render.ProjectID)
		return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"status": models.RenderDone, "output_url": outputURL})
	}
	if err := h.transitionProject(project, models.ProjectRenderComplete, map[string]interface{}{
		"output_url":    outputURL,
		"error_message": nil,
	}); err != nil {
		log.Error("Failed to settle project after render: ", err)
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not settle project after render")
	}

	log.Info("Render completed and artifact stored")
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"status":     models.RenderDone,
		"output_url": outputURL,
	})
}
