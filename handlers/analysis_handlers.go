package handlers

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dream-anchor/creatoros-reels/internal/vision"
	"github.com/dream-anchor/creatoros-reels/models"
	"github.com/dream-anchor/creatoros-reels/utils"
)

// FrameUpload is a single extracted frame submitted for scoring.
type FrameUpload struct {
	FrameIndex  int    `json:"frame_index" validate:"min=0"`
	TimestampMs int64  `json:"timestamp_ms" validate:"min=0"`
	ImageBase64 string `json:"image_base64" validate:"required"`
}

// AnalyzeFramesRequest defines the batch body for frame analysis.
type AnalyzeFramesRequest struct {
	Frames []FrameUpload `json:"frames" validate:"required,min=1,dive"`
}

// AnalyzeFrames godoc
// @Summary Score a batch of extracted frames
// @Description Runs the vision model over each submitted frame and appends the results to the project's frame analysis. A frame that cannot be scored receives a neutral default result instead of failing the batch.
// @Tags analysis
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param frames body AnalyzeFramesRequest true "Frames to score"
// @Success 200 {object} map[string]interface{} "Frame analysis updated"
// @Failure 400 {object} map[string]interface{} "Invalid batch or illegal project state"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id}/analyze-frames [post]
func (h *ApplicationHandler) AnalyzeFrames(c *fiber.Ctx) error {
	projectID := c.Params("id")

	req := new(AnalyzeFramesRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse frames JSON: %v", err))
	}
	if err := validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	project, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	existing, err := project.FrameResults()
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Stored frame analysis is unreadable")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Stored frame analysis is unreadable")
	}

	if err := h.transitionProject(project, models.ProjectAnalyzingFrames, map[string]interface{}{"error_message": nil}); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	analyzed := make(map[int]bool, len(existing))
	for _, fr := range existing {
		analyzed[fr.FrameIndex] = true
	}

	results := make([]models.FrameResult, len(req.Frames))
	g, ctx := errgroup.WithContext(c.UserContext())
	g.SetLimit(h.AnalysisConcurrency)
	for i, frame := range req.Frames {
		i, frame := i, frame
		g.Go(func() error {
			judgement, err := h.Vision.JudgeFrame(ctx, frame.ImageBase64)
			if err != nil {
				h.Logger.WithError(err).WithFields(map[string]interface{}{
					"project_id":  projectID,
					"frame_index": frame.FrameIndex,
				}).Warn("Frame scoring failed, using default judgement")
				judgement = vision.DefaultJudgement()
			}
			results[i] = models.FrameResult{
				FrameIndex:  frame.FrameIndex,
				TimestampMs: frame.TimestampMs,
				Score:       judgement.Score,
				Description: judgement.Description,
				Tags:        judgement.Tags,
				HasFace:     judgement.HasFace,
				HasText:     judgement.HasText,
				EnergyLevel: judgement.EnergyLevel,
			}
			return nil
		})
	}
	// Goroutines never return errors; per-frame failures become defaults.
	_ = g.Wait()

	merged := existing
	added := 0
	for _, fr := range results {
		if analyzed[fr.FrameIndex] {
			continue
		}
		analyzed[fr.FrameIndex] = true
		merged = append(merged, fr)
		added++
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].FrameIndex < merged[j].FrameIndex
	})

	frameAnalysis, err := json.Marshal(merged)
	if err != nil {
		h.markProjectFailed(project, fmt.Sprintf("frame analysis encode: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not encode frame analysis")
	}
	if err := h.updateProject(projectID, map[string]interface{}{"frame_analysis": json.RawMessage(frameAnalysis)}); err != nil {
		h.markProjectFailed(project, fmt.Sprintf("frame analysis store: %v", err))
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not store frame analysis")
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id":   projectID,
		"frames_sent":  len(req.Frames),
		"frames_added": added,
		"frames_total": len(merged),
	}).Info("Frame analysis updated")
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"frames_added": added,
		"frames_total": len(merged),
		"frames":       merged,
	})
}
