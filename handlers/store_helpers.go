package handlers

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dream-anchor/creatoros-reels/models"
)

// ErrRecordNotFound is returned by lookup helpers when no row matches.
var ErrRecordNotFound = errors.New("record not found")

var validate = validator.New()

func (h *ApplicationHandler) getProjectByID(id string) (*models.VideoProject, error) {
	var project models.VideoProject
	_, err := h.DB.From("video_projects").
		Select("*", "exact", false).
		Eq("id", id).
		Single().
		ExecuteTo(&project)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return &project, nil
}

// updateProject patches the given columns and reports not-found when the
// row does not exist.
func (h *ApplicationHandler) updateProject(id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	_, count, err := h.DB.From("video_projects").
		Update(updates, "", "exact").
		Eq("id", id).
		Execute()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// transitionProject moves a project to next after checking the transition
// is legal from its current status.
func (h *ApplicationHandler) transitionProject(project *models.VideoProject, next models.ProjectStatus, extra map[string]interface{}) error {
	if !project.Status.CanTransitionTo(next) {
		return errors.New("cannot transition from " + string(project.Status) + " to " + string(next))
	}
	updates := map[string]interface{}{"status": next}
	for k, v := range extra {
		updates[k] = v
	}
	if err := h.updateProject(project.ID.String(), updates); err != nil {
		return err
	}
	project.Status = next
	return nil
}

// markProjectFailed records a stage failure on the project row. Errors are
// logged rather than returned since callers are already on an error path.
func (h *ApplicationHandler) markProjectFailed(project *models.VideoProject, message string) {
	updates := map[string]interface{}{
		"status":        models.ProjectFailed,
		"error_message": message,
	}
	if err := h.updateProject(project.ID.String(), updates); err != nil {
		h.Logger.WithError(err).WithField("project_id", project.ID).Error("Failed to mark project as failed")
		return
	}
	project.Status = models.ProjectFailed
}

func (h *ApplicationHandler) listProjectSegments(projectID string) ([]models.VideoSegment, error) {
	body, _, err := h.DB.From("video_segments").
		Select("*", "", false).
		Eq("project_id", projectID).
		Execute()
	if err != nil {
		return nil, err
	}
	var segments []models.VideoSegment
	if err := json.Unmarshal(body, &segments); err != nil {
		return nil, err
	}
	sort.Slice(segments, func(i, j int) bool {
		return segments[i].SegmentIndex < segments[j].SegmentIndex
	})
	return segments, nil
}

func (h *ApplicationHandler) getRenderByJobID(jobID string) (*models.VideoRender, error) {
	var render models.VideoRender
	_, err := h.DB.From("video_renders").
		Select("*", "exact", false).
		Eq("render_job_id", jobID).
		Single().
		ExecuteTo(&render)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	return &render, nil
}

// claimRender patches the render row only if its status still equals
// expected. A false return means another delivery settled or advanced the
// row first and the caller must treat its own delivery as a duplicate.
func (h *ApplicationHandler) claimRender(id string, expected models.RenderStatus, updates map[string]interface{}) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	_, count, err := h.DB.From("video_renders").
		Update(updates, "", "exact").
		Eq("id", id).
		Eq("status", string(expected)).
		Execute()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *ApplicationHandler) updateRender(id string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	_, count, err := h.DB.From("video_renders").
		Update(updates, "", "exact").
		Eq("id", id).
		Execute()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRecordNotFound
	}
	return nil
}
