// Package selector asks the reasoning model to pick an ordered, narratively
// structured set of sub-clips from a project's frame analysis and transcript,
// and validates the reply before anything is persisted. Selection is
// content-driven: the transcript is the primary signal, visual score is only
// a tie-breaker, and there is deliberately no fallback selection: an
// unusable reply fails the stage.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dream-anchor/creatoros-reels/internal/modelapi"
	"github.com/dream-anchor/creatoros-reels/models"
)

const (
	requestTimeout = 90 * time.Second

	// chunkWindowSec is the target size of the coalesced transcript chunks
	// shown to the model.
	chunkWindowSec = 5.0

	// maxSubtitleWords bounds the overlay text per segment.
	maxSubtitleWords = 10

	// durationToleranceSec is stated to the model as guidance around the
	// target duration. Not hard-enforced by validation.
	durationToleranceSec = 3
)

// Request carries everything the selection stage knows about a project.
type Request struct {
	Frames            []models.FrameResult
	Transcript        models.Transcript
	SourceDurationMs  int64
	TargetDurationSec int
}

// Segment is one entry of a validated selection plan, ordered by
// SegmentIndex on the output timeline.
type Segment struct {
	SegmentIndex int     `json:"segment_index"`
	StartMs      int64   `json:"start_ms"`
	EndMs        int64   `json:"end_ms"`
	Role         string  `json:"role"`
	Rationale    string  `json:"rationale"`
	Excerpt      string  `json:"excerpt"`
	Subtitle     string  `json:"subtitle"`
	Score        float64 `json:"score"`
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

var planSchema = &modelapi.Schema{
	Name: "reel_segments",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"segments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"segment_index": map[string]any{"type": "integer"},
						"start_ms":      map[string]any{"type": "integer"},
						"end_ms":        map[string]any{"type": "integer"},
						"role":          map[string]any{"type": "string", "enum": models.NarrativeRoles},
						"rationale":     map[string]any{"type": "string"},
						"excerpt":       map[string]any{"type": "string"},
						"subtitle":      map[string]any{"type": "string"},
						"score":         map[string]any{"type": "number"},
					},
					"required": []string{"segment_index", "start_ms", "end_ms", "role", "rationale", "excerpt", "subtitle", "score"},
				},
			},
		},
		"required": []string{"segments"},
	},
}

// Select runs one selection call and returns the validated plan sorted by
// segment index.
func (c *Client) Select(ctx context.Context, req Request) ([]Segment, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	messages := []modelapi.Message{{Role: "user", Content: prompt}}
	content, err := modelapi.Complete(reqCtx, c.http, c.baseURL, c.apiKey, c.model, messages, planSchema)
	if err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}

	clean, err := modelapi.ExtractJSONObject(content)
	if err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}

	var out struct {
		Segments []Segment `json:"segments"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("selection: decode plan: %w", err)
	}

	if err := validatePlan(out.Segments); err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}

	sort.Slice(out.Segments, func(i, j int) bool {
		return out.Segments[i].SegmentIndex < out.Segments[j].SegmentIndex
	})
	return out.Segments, nil
}

// frameSummary is the compact view of one analyzed frame shown to the model.
type frameSummary struct {
	TimestampMs int64    `json:"timestamp_ms"`
	Score       float64  `json:"score"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Energy      string   `json:"energy"`
	HasFace     bool     `json:"has_face"`
}

// transcriptChunk is a coalesced run of spoken words with its time bounds.
type transcriptChunk struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

func buildPrompt(req Request) (string, error) {
	frames := make([]frameSummary, 0, len(req.Frames))
	for _, f := range req.Frames {
		frames = append(frames, frameSummary{
			TimestampMs: f.TimestampMs,
			Score:       f.Score,
			Description: f.Description,
			Tags:        f.Tags,
			Energy:      f.EnergyLevel,
			HasFace:     f.HasFace,
		})
	}

	input := map[string]any{
		"source_duration_ms":     req.SourceDurationMs,
		"target_duration_sec":    req.TargetDurationSec,
		"duration_tolerance_sec": durationToleranceSec,
		"frames":                 frames,
		"transcript":             chunkTranscript(req.Transcript, chunkWindowSec),
	}
	ib, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("selection: marshal input: %w", err)
	}

	return "Select an ordered set of sub-clips from this long-form video that together tell a coherent short story " +
		"of about target_duration_sec seconds (within duration_tolerance_sec either way). " +
		"Return strictly valid JSON matching the schema. " +
		"The spoken transcript is the primary signal; frame visual score is only a tie-breaker between " +
		"otherwise equal moments. Prefer starting and ending segments at natural speech-pause boundaries " +
		"over maximizing visual score. " +
		"Order segments on the output timeline with segment_index starting at 0 and counting up with no gaps; " +
		"segments must not overlap on the output timeline, though they may reuse source time ranges. " +
		"Tag each segment with an advisory narrative role (hook, context, buildup, climax, cta); not every role " +
		"is required, but the ordering must read as a story: attention-grabbing opener first, payoff near the end. " +
		"Each segment needs a subtitle of at most " + fmt.Sprint(maxSubtitleWords) + " words, a short rationale, " +
		"and the transcript excerpt it covers. start_ms and end_ms are on the source timeline with end_ms > start_ms." +
		"\n\nInput JSON:\n" + string(ib), nil
}

// chunkTranscript coalesces word timestamps into ~windowSec spoken chunks.
// A chunk closes when it reaches the window size or when a pause longer than
// the window gap follows, so chunk boundaries land on natural breaks.
func chunkTranscript(tr models.Transcript, windowSec float64) []transcriptChunk {
	const pauseGapSec = 0.8

	var out []transcriptChunk
	var words []string
	var start, end float64

	flush := func() {
		if len(words) == 0 {
			return
		}
		out = append(out, transcriptChunk{
			StartSec: start,
			EndSec:   end,
			Text:     strings.Join(words, " "),
		})
		words = nil
	}

	for _, w := range tr.Words {
		if w.End <= w.Start || strings.TrimSpace(w.Word) == "" {
			continue
		}
		if len(words) == 0 {
			start = w.Start
		} else if w.Start-end >= pauseGapSec || w.End-start >= windowSec {
			flush()
			start = w.Start
		}
		words = append(words, strings.TrimSpace(w.Word))
		end = w.End
	}
	flush()
	return out
}

// validatePlan enforces the structural contract on a selection reply: a
// non-empty list whose included indices form a contiguous 0..N-1 permutation,
// every segment with end_ms > start_ms and a subtitle of at most ten words.
func validatePlan(segs []Segment) error {
	if len(segs) == 0 {
		return fmt.Errorf("model returned no segments")
	}

	seen := make(map[int]bool, len(segs))
	for _, s := range segs {
		if s.EndMs <= s.StartMs {
			return fmt.Errorf("segment %d has end_ms %d <= start_ms %d", s.SegmentIndex, s.EndMs, s.StartMs)
		}
		if s.SegmentIndex < 0 || s.SegmentIndex >= len(segs) {
			return fmt.Errorf("segment_index %d out of range for %d segments", s.SegmentIndex, len(segs))
		}
		if seen[s.SegmentIndex] {
			return fmt.Errorf("duplicate segment_index %d", s.SegmentIndex)
		}
		seen[s.SegmentIndex] = true

		if n := len(strings.Fields(s.Subtitle)); n > maxSubtitleWords {
			return fmt.Errorf("segment %d subtitle has %d words (max %d)", s.SegmentIndex, n, maxSubtitleWords)
		}
		if s.Role != "" && !models.ValidRole(s.Role) {
			return fmt.Errorf("segment %d has unknown role %q", s.SegmentIndex, s.Role)
		}
	}
	// seen has len(segs) distinct in-range keys, so indices are 0..N-1.
	return nil
}
