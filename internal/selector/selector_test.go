package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dream-anchor/creatoros-reels/models"
)

func stubServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

// testRequest builds the end-to-end scenario: 10 analyzed frames with known
// scores and a 40-second transcript, target 30s.
func testRequest() Request {
	scores := []float64{2, 3, 9, 8, 1, 4, 7, 6, 3, 5}
	frames := make([]models.FrameResult, len(scores))
	for i, s := range scores {
		frames[i] = models.FrameResult{
			FrameIndex:  i,
			TimestampMs: int64(i * 4000),
			Score:       s,
			Description: fmt.Sprintf("frame %d", i),
			Tags:        []string{"talk"},
			EnergyLevel: "medium",
		}
	}

	var words []models.TranscriptWord
	for i := 0; i < 100; i++ {
		start := float64(i) * 0.4
		words = append(words, models.TranscriptWord{Word: fmt.Sprintf("w%d", i), Start: start, End: start + 0.35})
	}
	return Request{
		Frames:            frames,
		Transcript:        models.Transcript{Text: "forty seconds of speech", Words: words, Language: "en"},
		SourceDurationMs:  40000,
		TargetDurationSec: 30,
	}
}

func planJSON(segs ...Segment) string {
	b, _ := json.Marshal(map[string]any{"segments": segs})
	return string(b)
}

func TestSelect_ValidPlan(t *testing.T) {
	// Three segments summing to exactly 30s, out of index order in the reply.
	srv := stubServer(t, planJSON(
		Segment{SegmentIndex: 1, StartMs: 12000, EndMs: 24000, Role: "buildup", Rationale: "main point", Excerpt: "w30 w31", Subtitle: "the main development", Score: 8},
		Segment{SegmentIndex: 0, StartMs: 8000, EndMs: 16000, Role: "hook", Rationale: "opener", Excerpt: "w20 w21", Subtitle: "wait for this", Score: 9},
		Segment{SegmentIndex: 2, StartMs: 28000, EndMs: 38000, Role: "climax", Rationale: "payoff", Excerpt: "w70 w71", Subtitle: "here is the payoff", Score: 7},
	))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	segs, err := c.Select(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
	var totalMs int64
	for i, s := range segs {
		if s.SegmentIndex != i {
			t.Fatalf("segments not sorted: index %d at position %d", s.SegmentIndex, i)
		}
		if s.EndMs <= s.StartMs {
			t.Fatalf("segment %d has non-positive duration", i)
		}
		totalMs += s.EndMs - s.StartMs
	}
	if totalMs < 27000 || totalMs > 33000 {
		t.Fatalf("total duration %dms outside [27s, 33s]", totalMs)
	}
}

func TestSelect_RejectsBadPlans(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty list", `{"segments":[]}`},
		{"not json", "I could not find good segments, sorry!"},
		{"inverted timing", planJSON(
			Segment{SegmentIndex: 0, StartMs: 9000, EndMs: 4000, Subtitle: "broken"},
		)},
		{"duplicate index", planJSON(
			Segment{SegmentIndex: 0, StartMs: 0, EndMs: 5000, Subtitle: "a"},
			Segment{SegmentIndex: 0, StartMs: 6000, EndMs: 11000, Subtitle: "b"},
		)},
		{"gap in indices", planJSON(
			Segment{SegmentIndex: 0, StartMs: 0, EndMs: 5000, Subtitle: "a"},
			Segment{SegmentIndex: 2, StartMs: 6000, EndMs: 11000, Subtitle: "b"},
		)},
		{"subtitle too long", planJSON(
			Segment{SegmentIndex: 0, StartMs: 0, EndMs: 5000, Subtitle: "one two three four five six seven eight nine ten eleven"},
		)},
		{"unknown role", planJSON(
			Segment{SegmentIndex: 0, StartMs: 0, EndMs: 5000, Role: "finale", Subtitle: "a"},
		)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := stubServer(t, tt.content)
			defer srv.Close()

			c := New(srv.URL, "test-key", "test-model")
			if _, err := c.Select(context.Background(), testRequest()); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSelect_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "test-key", "test-model")
	if _, err := c.Select(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestChunkTranscript(t *testing.T) {
	// 20 words at 0.4s spacing: chunks close at the 5s window.
	var words []models.TranscriptWord
	for i := 0; i < 20; i++ {
		start := float64(i) * 0.4
		words = append(words, models.TranscriptWord{Word: fmt.Sprintf("w%d", i), Start: start, End: start + 0.3})
	}
	chunks := chunkTranscript(models.Transcript{Words: words}, 5.0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Text == "" {
			t.Fatalf("chunk %d has empty text", i)
		}
		if ch.EndSec <= ch.StartSec {
			t.Fatalf("chunk %d has non-positive duration", i)
		}
		if ch.EndSec-ch.StartSec > 5.5 {
			t.Fatalf("chunk %d longer than window: %.1fs", i, ch.EndSec-ch.StartSec)
		}
		if i > 0 && ch.StartSec < chunks[i-1].EndSec {
			t.Fatalf("chunk %d overlaps previous", i)
		}
	}
}

func TestChunkTranscript_PauseBoundary(t *testing.T) {
	words := []models.TranscriptWord{
		{Word: "before", Start: 0.0, End: 0.4},
		{Word: "pause", Start: 0.5, End: 0.9},
		{Word: "after", Start: 3.0, End: 3.4}, // 2.1s gap
	}
	chunks := chunkTranscript(models.Transcript{Words: words}, 5.0)
	if len(chunks) != 2 {
		t.Fatalf("expected pause to split chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "before pause" || chunks[1].Text != "after" {
		t.Fatalf("unexpected chunk texts: %q, %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestValidatePlan_ContiguousPermutation(t *testing.T) {
	segs := []Segment{
		{SegmentIndex: 2, StartMs: 0, EndMs: 1000, Subtitle: "c"},
		{SegmentIndex: 0, StartMs: 5000, EndMs: 9000, Subtitle: "a"},
		{SegmentIndex: 1, StartMs: 2000, EndMs: 4000, Subtitle: "b"},
	}
	if err := validatePlan(segs); err != nil {
		t.Fatalf("valid permutation rejected: %v", err)
	}
}
