package handlers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"

	"github.com/gofiber/fiber/v2"

	"github.com/dream-anchor/creatoros-reels/internal/fetch"
	"github.com/dream-anchor/creatoros-reels/internal/urlcheck"
	"github.com/dream-anchor/creatoros-reels/models"
	"github.com/dream-anchor/creatoros-reels/utils"
)

// TranscribeRequest optionally points at a pre-extracted audio track.
// When AudioURL is empty the project's source video is transcribed directly.
type TranscribeRequest struct {
	AudioURL string `json:"audio_url,omitempty"`
}

// TranscribeProject godoc
// @Summary Transcribe a project's media
// @Description Downloads the source video or a pre-extracted audio track and produces a word-timestamped transcript. The transcript is replaced wholesale on re-runs.
// @Tags analysis
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param body body TranscribeRequest false "Optional audio track override"
// @Success 200 {object} map[string]interface{} "Transcript stored"
// @Failure 400 {object} map[string]interface{} "Disallowed media URL or illegal project state"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Failure 500 {object} map[string]interface{} "Transcription failed"
// @Router /projects/{id}/transcribe [post]
func (h *ApplicationHandler) TranscribeProject(c *fiber.Ctx) error {
	projectID := c.Params("id")

	req := new(TranscribeRequest)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse transcribe JSON: %v", err))
		}
	}

	project, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	mediaURL := project.SourceURL
	if req.AudioURL != "" {
		mediaURL = req.AudioURL
	}
	if err := urlcheck.ValidateFetchURL(mediaURL); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Media URL rejected: %v", err))
	}

	if err := h.transitionProject(project, models.ProjectTranscribing, map[string]interface{}{"error_message": nil}); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	media, err := h.Downloader.Fetch(c.UserContext(), mediaURL, fetch.DefaultMaxBytes)
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to download media for transcription")
		h.markProjectFailed(project, fmt.Sprintf("media download: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not download media: %v", err))
	}

	transcript, err := h.Transcriber.Transcribe(c.UserContext(), media, mediaFilename(mediaURL))
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Transcription failed")
		h.markProjectFailed(project, fmt.Sprintf("transcription: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Transcription failed: %v", err))
	}

	encoded, err := json.Marshal(transcript)
	if err != nil {
		h.markProjectFailed(project, fmt.Sprintf("transcript encode: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not encode transcript")
	}
	if err := h.updateProject(projectID, map[string]interface{}{"transcript": json.RawMessage(encoded)}); err != nil {
		h.markProjectFailed(project, fmt.Sprintf("transcript store: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store transcript")
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id": projectID,
		"words":      len(transcript.Words),
		"language":   transcript.Language,
	}).Info("Transcript stored")
	return utils.RespondWithJSON(c, fiber.StatusOK, transcript)
}

// mediaFilename derives an upload filename from the media URL so the
// transcription service can sniff the container format.
func mediaFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "media.mp4"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" || path.Ext(name) == "" {
		return "media.mp4"
	}
	return name
}
