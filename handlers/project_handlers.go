package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/dream-anchor/creatoros-reels/models"
	"github.com/dream-anchor/creatoros-reels/utils"
)

// CreateProjectRequest defines the expected request body for registering an
// uploaded source video. UserID and SourceURL are required.
type CreateProjectRequest struct {
	UserID            string  `json:"user_id" validate:"required,uuid4"`
	PostID            *string `json:"post_id,omitempty" validate:"omitempty,uuid4"`
	SourceURL         string  `json:"source_url" validate:"required,url"`
	DurationMs        *int64  `json:"duration_ms,omitempty" validate:"omitempty,gt=0"`
	FileSize          *int64  `json:"file_size,omitempty" validate:"omitempty,gt=0"`
	Width             *int    `json:"width,omitempty" validate:"omitempty,gt=0"`
	Height            *int    `json:"height,omitempty" validate:"omitempty,gt=0"`
	TargetDurationSec *int    `json:"target_duration_sec,omitempty" validate:"omitempty,min=5,max=120"`
	SubtitleStyle     *string `json:"subtitle_style,omitempty"`
	TransitionStyle   *string `json:"transition_style,omitempty"`
	MusicURL          *string `json:"music_url,omitempty" validate:"omitempty,url"`
}

// CreateProject godoc
// @Summary Register an uploaded source video
// @Description Creates a new video project in the uploaded state, ready for frame analysis and transcription.
// @Tags projects
// @Accept json
// @Produce json
// @Param project body CreateProjectRequest true "Project to create"
// @Success 201 {object} map[string]interface{} "Project created successfully"
// @Failure 400 {object} map[string]interface{} "Invalid request body"
// @Failure 500 {object} map[string]interface{} "Database error"
// @Router /projects [post]
func (h *ApplicationHandler) CreateProject(c *fiber.Ctx) error {
	req := new(CreateProjectRequest)
	if err := c.BodyParser(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot parse project JSON: %v", err))
	}

	if err := validate.Struct(req); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	subtitleStyle := models.SubtitleBoldCentered
	if req.SubtitleStyle != nil {
		subtitleStyle = models.SubtitleStyle(*req.SubtitleStyle)
		if !subtitleStyle.Valid() {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown subtitle_style: %s", *req.SubtitleStyle))
		}
	}
	transitionStyle := models.TransitionCut
	if req.TransitionStyle != nil {
		transitionStyle = models.TransitionStyle(*req.TransitionStyle)
		if !transitionStyle.Valid() {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown transition_style: %s", *req.TransitionStyle))
		}
	}
	targetDuration := models.DefaultTargetDurationSec
	if req.TargetDurationSec != nil {
		targetDuration = *req.TargetDurationSec
	}

	now := time.Now().UTC()
	insertData := map[string]interface{}{
		"user_id":             req.UserID,
		"source_url":          req.SourceURL,
		"status":              models.ProjectUploaded,
		"target_duration_sec": targetDuration,
		"subtitle_style":      subtitleStyle,
		"transition_style":    transitionStyle,
		"created_at":          now,
		"updated_at":          now,
	}
	if req.PostID != nil {
		insertData["post_id"] = *req.PostID
	}
	if req.DurationMs != nil {
		insertData["duration_ms"] = *req.DurationMs
	}
	if req.FileSize != nil {
		insertData["file_size"] = *req.FileSize
	}
	if req.Width != nil {
		insertData["width"] = *req.Width
	}
	if req.Height != nil {
		insertData["height"] = *req.Height
	}
	if req.MusicURL != nil {
		insertData["music_url"] = *req.MusicURL
	}

	body, _, err := h.DB.From("video_projects").
		Insert(insertData, false, "", "representation", "").
		Execute()
	if err != nil {
		h.Logger.WithError(err).Error("Failed to insert video project")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not create project: %v", err))
	}

	var results []models.VideoProject
	if err := json.Unmarshal(body, &results); err != nil {
		h.Logger.WithError(err).Error("Failed to unmarshal created project")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not process project creation response")
	}
	if len(results) == 0 {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Project creation returned no rows")
	}

	h.Logger.WithFields(map[string]interface{}{
		"project_id": results[0].ID,
		"user_id":    results[0].UserID,
	}).Info("Video project created")
	return utils.RespondWithJSON(c, fiber.StatusCreated, results[0])
}

// GetProjects godoc
// @Summary List video projects
// @Description Retrieves all video projects, optionally filtered by user_id.
// @Tags projects
// @Produce json
// @Param user_id query string false "Filter by owning user"
// @Success 200 {object} map[string]interface{} "Projects retrieved successfully"
// @Failure 500 {object} map[string]interface{} "Database error"
// @Router /projects [get]
func (h *ApplicationHandler) GetProjects(c *fiber.Ctx) error {
	query := h.DB.From("video_projects").Select("*", "", false)
	if userID := c.Query("user_id"); userID != "" {
		query = query.Eq("user_id", userID)
	}

	body, _, err := query.Execute()
	if err != nil {
		h.Logger.WithError(err).Error("Failed to fetch video projects")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not retrieve projects: %v", err))
	}

	var projects []models.VideoProject
	if err := json.Unmarshal(body, &projects); err != nil {
		h.Logger.WithError(err).Error("Failed to unmarshal video projects")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not process projects data")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, projects)
}

// GetProject godoc
// @Summary Get a video project
// @Description Retrieves a single video project with its segments, ordered by segment index.
// @Tags projects
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Project retrieved successfully"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id} [get]
func (h *ApplicationHandler) GetProject(c *fiber.Ctx) error {
	projectID := c.Params("id")

	project, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	segments, err := h.listProjectSegments(projectID)
	if err != nil {
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to fetch project segments")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not retrieve project segments")
	}

	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"project":  project,
		"segments": segments,
	})
}

// UpdateProject godoc
// @Summary Update a video project
// @Description Partially updates reel preferences and metadata on a project. Status changes must follow the lifecycle.
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]interface{} "Project updated successfully"
// @Failure 400 {object} map[string]interface{} "Invalid field or illegal status transition"
// @Failure 404 {object} map[string]interface{} "Project not found"
// @Router /projects/{id} [patch]
func (h *ApplicationHandler) UpdateProject(c *fiber.Ctx) error {
	projectID := c.Params("id")

	var payload map[string]interface{}
	if err := c.BodyParser(&payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	project, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
	}

	updates := make(map[string]interface{})

	if val, ok := payload["target_duration_sec"]; ok {
		num, typeOK := val.(float64)
		if !typeOK || num < 5 || num > 120 {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'target_duration_sec' must be a number between 5 and 120")
		}
		updates["target_duration_sec"] = int(num)
	}

	if val, ok := payload["subtitle_style"]; ok {
		str, typeOK := val.(string)
		if !typeOK || !models.SubtitleStyle(str).Valid() {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown subtitle_style: %v", val))
		}
		updates["subtitle_style"] = str
	}

	if val, ok := payload["transition_style"]; ok {
		str, typeOK := val.(string)
		if !typeOK || !models.TransitionStyle(str).Valid() {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown transition_style: %v", val))
		}
		updates["transition_style"] = str
	}

	if val, exists := payload["music_url"]; exists {
		if val == nil {
			updates["music_url"] = nil
		} else if str, typeOK := val.(string); typeOK {
			updates["music_url"] = str
		} else {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'music_url' must be a string or null")
		}
	}

	if val, exists := payload["post_id"]; exists {
		if val == nil {
			updates["post_id"] = nil
		} else if str, typeOK := val.(string); typeOK {
			if _, err := uuid.Parse(str); err != nil {
				return utils.RespondWithError(c, fiber.StatusBadRequest, "'post_id' must be a UUID or null")
			}
			updates["post_id"] = str
		} else {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'post_id' must be a UUID or null")
		}
	}

	if val, exists := payload["error_message"]; exists {
		if val == nil {
			updates["error_message"] = nil
		} else if str, typeOK := val.(string); typeOK {
			updates["error_message"] = str
		} else {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'error_message' must be a string or null")
		}
	}

	if val, ok := payload["duration_ms"]; ok {
		num, typeOK := val.(float64)
		if !typeOK || num <= 0 {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'duration_ms' must be a positive number")
		}
		updates["duration_ms"] = int64(num)
	}

	if val, ok := payload["status"]; ok {
		str, typeOK := val.(string)
		if !typeOK {
			return utils.RespondWithError(c, fiber.StatusBadRequest, "'status' must be a string")
		}
		next := models.ProjectStatus(str)
		if !next.Valid() {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Unknown status: %s", str))
		}
		if !project.Status.CanTransitionTo(next) {
			return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Cannot transition project from %s to %s", project.Status, next))
		}
		updates["status"] = next
	}

	if len(updates) == 0 {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "No updatable fields provided")
	}

	if err := h.updateProject(projectID, updates); err != nil {
		if err == ErrRecordNotFound {
			return utils.RespondWithError(c, fiber.StatusNotFound, fmt.Sprintf("Project with ID %s not found", projectID))
		}
		h.Logger.WithError(err).WithField("project_id", projectID).Error("Failed to update project")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, fmt.Sprintf("Could not update project: %v", err))
	}

	updated, err := h.getProjectByID(projectID)
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not reload updated project")
	}

	h.Logger.WithField("project_id", projectID).Info("Video project updated")
	return utils.RespondWithJSON(c, fiber.StatusOK, updated)
}
