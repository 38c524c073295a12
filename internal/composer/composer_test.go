package composer

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/dream-anchor/creatoros-reels/models"
)

func testSegments() []models.VideoSegment {
	// Deliberately out of index order; Build must sort by segment_index.
	return []models.VideoSegment{
		{SegmentIndex: 1, StartMs: 4000, EndMs: 16000, Subtitle: "the middle part", IsIncluded: true},
		{SegmentIndex: 0, StartMs: 20000, EndMs: 28000, Subtitle: "watch this first", IsIncluded: true},
		{SegmentIndex: 2, StartMs: 1000, EndMs: 11000, Subtitle: "and the payoff", IsIncluded: true},
	}
}

func TestBuild_Deterministic(t *testing.T) {
	segs := testSegments()
	a, err := Build(segs, models.SubtitleBoldCentered, models.TransitionFade, "https://cdn.example.com/src.mp4", "https://api.example.com/callbacks/render")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Build(segs, models.SubtitleBoldCentered, models.TransitionFade, "https://cdn.example.com/src.mp4", "https://api.example.com/callbacks/render")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	if !bytes.Equal(ab, bb) {
		t.Fatal("identical inputs produced different compositions")
	}
}

func TestBuild_BackToBackTimeline(t *testing.T) {
	comp, err := Build(testSegments(), models.SubtitleBottomBar, models.TransitionCut, "https://cdn.example.com/src.mp4", "https://api.example.com/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	video := comp.Timeline.Tracks[0].Clips
	if len(video) != 3 {
		t.Fatalf("got %d video clips, want 3", len(video))
	}

	// Output order follows segment_index: 8s, 12s, 10s.
	wantLengths := []float64{8, 12, 10}
	cursor := 0.0
	for i, c := range video {
		if math.Abs(c.Length-wantLengths[i]) > 1e-9 {
			t.Fatalf("clip %d length = %v, want %v", i, c.Length, wantLengths[i])
		}
		if math.Abs(c.Start-cursor) > 1e-9 {
			t.Fatalf("clip %d start = %v, want %v (no gaps or overlaps)", i, c.Start, cursor)
		}
		cursor += c.Length
	}
	if math.Abs(cursor-30) > 1e-9 {
		t.Fatalf("total output duration = %v, want 30", cursor)
	}

	// First clip is segment_index 0, trimmed at 20s on the source timeline.
	if video[0].Asset.Trim != 20 {
		t.Fatalf("clip 0 trim = %v, want 20", video[0].Asset.Trim)
	}
}

func TestBuild_CutMeansNoTransition(t *testing.T) {
	comp, err := Build(testSegments(), models.SubtitleBoldCentered, models.TransitionCut, "https://cdn.example.com/src.mp4", "https://api.example.com/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range comp.Timeline.Tracks[0].Clips {
		if c.Transition != nil {
			t.Fatalf("clip %d carries a transition under cut style", i)
		}
	}

	comp, err = Build(testSegments(), models.SubtitleBoldCentered, models.TransitionFade, "https://cdn.example.com/src.mp4", "https://api.example.com/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range comp.Timeline.Tracks[0].Clips {
		if c.Transition == nil || c.Transition.In != "fade" {
			t.Fatalf("clip %d missing fade transition", i)
		}
	}
}

func TestBuild_OverlaysMatchClips(t *testing.T) {
	segs := testSegments()
	segs[2].Subtitle = "" // no overlay for this one
	comp, err := Build(segs, models.SubtitleMinimalLeft, models.TransitionCut, "https://cdn.example.com/src.mp4", "https://api.example.com/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comp.Timeline.Tracks) != 2 {
		t.Fatalf("got %d tracks, want video + overlay", len(comp.Timeline.Tracks))
	}

	video := comp.Timeline.Tracks[0].Clips
	overlays := comp.Timeline.Tracks[1].Clips
	if len(overlays) != 2 {
		t.Fatalf("got %d overlays, want 2 (one segment has no subtitle)", len(overlays))
	}
	// Overlays are anchored to their video clip's output window.
	for i := range overlays {
		if overlays[i].Start != video[i].Start || overlays[i].Length != video[i].Length {
			t.Fatalf("overlay %d not anchored to its clip", i)
		}
	}
}

func TestBuild_EscapesSubtitleMarkup(t *testing.T) {
	segs := []models.VideoSegment{
		{SegmentIndex: 0, StartMs: 0, EndMs: 5000, Subtitle: `<script>alert("x")</script>`, IsIncluded: true},
	}
	comp, err := Build(segs, models.SubtitleBoldCentered, models.TransitionCut, "https://cdn.example.com/src.mp4", "https://api.example.com/cb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	htmlOut := comp.Timeline.Tracks[1].Clips[0].Asset.HTML
	if strings.Contains(htmlOut, "<script>") {
		t.Fatalf("subtitle markup not escaped: %s", htmlOut)
	}
	if !strings.Contains(htmlOut, "&lt;script&gt;") {
		t.Fatalf("expected escaped entities, got: %s", htmlOut)
	}
}

func TestBuild_AllSubtitleStyles(t *testing.T) {
	styles := []models.SubtitleStyle{
		models.SubtitleBoldCentered,
		models.SubtitleBottomBar,
		models.SubtitleKaraokeHighlight,
		models.SubtitleMinimalLeft,
	}
	specs := make(map[string]bool)
	for _, style := range styles {
		comp, err := Build(testSegments(), style, models.TransitionCut, "https://cdn.example.com/src.mp4", "https://api.example.com/cb")
		if err != nil {
			t.Fatalf("style %s: %v", style, err)
		}
		asset := comp.Timeline.Tracks[1].Clips[0].Asset
		if asset.CSS == "" || asset.Position == "" {
			t.Fatalf("style %s has empty treatment", style)
		}
		specs[asset.CSS+"|"+asset.Position] = true
	}
	if len(specs) != len(styles) {
		t.Fatalf("styles are not distinct treatments: %d unique of %d", len(specs), len(styles))
	}
}

func TestBuild_Errors(t *testing.T) {
	valid := testSegments()
	tests := []struct {
		name       string
		segs       []models.VideoSegment
		subtitle   models.SubtitleStyle
		transition models.TransitionStyle
		source     string
	}{
		{"no segments", nil, models.SubtitleBoldCentered, models.TransitionCut, "https://cdn.example.com/src.mp4"},
		{"empty source", valid, models.SubtitleBoldCentered, models.TransitionCut, ""},
		{"bad subtitle style", valid, "comic-sans", models.TransitionCut, "https://cdn.example.com/src.mp4"},
		{"bad transition", valid, models.SubtitleBoldCentered, "wipe", "https://cdn.example.com/src.mp4"},
		{"inverted segment", []models.VideoSegment{{SegmentIndex: 0, StartMs: 5000, EndMs: 5000}}, models.SubtitleBoldCentered, models.TransitionCut, "https://cdn.example.com/src.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.segs, tt.subtitle, tt.transition, tt.source, "https://api.example.com/cb"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuild_OutputParameters(t *testing.T) {
	comp, err := Build(testSegments(), models.SubtitleBoldCentered, models.TransitionCut, "https://cdn.example.com/src.mp4", "https://api.example.com/callbacks/render")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := comp.Output
	if out.Width != 1080 || out.Height != 1920 || out.FPS != 30 || out.AspectRatio != "9:16" {
		t.Fatalf("unexpected output parameters: %+v", out)
	}
	if comp.CallbackURL != "https://api.example.com/callbacks/render" {
		t.Fatalf("callback URL not carried: %q", comp.CallbackURL)
	}
}
