// Package vision asks a vision-capable model to judge a single video frame
// for short-form suitability.
package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dream-anchor/creatoros-reels/internal/modelapi"
)

const requestTimeout = 45 * time.Second

// Judgement is the structured verdict for one frame.
type Judgement struct {
	Score       float64  `json:"score"` // 0-10 suitability for being featured
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	HasFace     bool     `json:"has_face"`
	HasText     bool     `json:"has_text"`
	EnergyLevel string   `json:"energy_level"` // low | medium | high
}

// DefaultJudgement is the safe record substituted when the model fails or
// returns an unusable shape for a frame. A single bad frame must not fail
// the batch, so callers fall back to this instead of propagating the error.
func DefaultJudgement() Judgement {
	return Judgement{
		Score:       0,
		Description: "frame could not be analyzed",
		Tags:        []string{},
		EnergyLevel: "low",
	}
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

var judgementSchema = &modelapi.Schema{
	Name: "frame_judgement",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":        map[string]any{"type": "number"},
			"description":  map[string]any{"type": "string"},
			"tags":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"has_face":     map[string]any{"type": "boolean"},
			"has_text":     map[string]any{"type": "boolean"},
			"energy_level": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
		},
		"required": []string{"score", "description", "tags", "has_face", "has_text", "energy_level"},
	},
}

const frameInstruction = "Judge this single video frame for use in a vertical short-form reel. " +
	"Return strictly valid JSON matching the schema: score (0-10 suitability for being featured), " +
	"a one-sentence description, 3-5 tags, has_face, has_text, and energy_level (low, medium or high)."

// JudgeFrame sends one base64-encoded frame image to the vision model and
// validates the structured reply. Callers substitute DefaultJudgement on
// error.
func (c *Client) JudgeFrame(ctx context.Context, imageBase64 string) (Judgement, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return Judgement{}, fmt.Errorf("vision: empty frame image")
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := []modelapi.Message{{
		Role: "user",
		Content: []modelapi.ContentPart{
			{Type: "text", Text: frameInstruction},
			{Type: "image_url", ImageURL: &modelapi.ImageURL{URL: "data:image/jpeg;base64," + imageBase64}},
		},
	}}

	content, err := modelapi.Complete(reqCtx, c.http, c.baseURL, c.apiKey, c.model, messages, judgementSchema)
	if err != nil {
		return Judgement{}, fmt.Errorf("vision: %w", err)
	}

	clean, err := modelapi.ExtractJSONObject(content)
	if err != nil {
		return Judgement{}, fmt.Errorf("vision: %w", err)
	}

	var j Judgement
	if err := json.Unmarshal([]byte(clean), &j); err != nil {
		return Judgement{}, fmt.Errorf("vision: decode judgement: %w", err)
	}
	if err := validateJudgement(&j); err != nil {
		return Judgement{}, fmt.Errorf("vision: %w", err)
	}
	return j, nil
}

// validateJudgement normalizes and checks the decoded reply. Out-of-range
// scores are clamped; anything structurally wrong is an error so the caller
// can fall back to the default record.
func validateJudgement(j *Judgement) error {
	if strings.TrimSpace(j.Description) == "" {
		return fmt.Errorf("judgement missing description")
	}
	j.EnergyLevel = strings.ToLower(strings.TrimSpace(j.EnergyLevel))
	switch j.EnergyLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("judgement has invalid energy_level %q", j.EnergyLevel)
	}
	if j.Score < 0 {
		j.Score = 0
	}
	if j.Score > 10 {
		j.Score = 10
	}
	if j.Tags == nil {
		j.Tags = []string{}
	}
	return nil
}
