// Package composer turns a project's included segments into the composition
// description submitted to the external render service. It is a pure
// transform: no network, no persistence, and identical inputs always produce
// identical output.
package composer

import (
	"fmt"
	"html"
	"sort"

	"github.com/dream-anchor/creatoros-reels/models"
)

// Fixed output parameters for vertical short-form video.
const (
	OutputWidth  = 1080
	OutputHeight = 1920
	OutputFPS    = 30
	OutputFormat = "mp4"
)

// Composition is the render-service payload: an ordered video track, an
// overlay track for subtitles, output parameters and the completion callback.
type Composition struct {
	Timeline    Timeline `json:"timeline"`
	Output      Output   `json:"output"`
	CallbackURL string   `json:"callback"`
}

type Timeline struct {
	Tracks []Track `json:"tracks"`
}

type Track struct {
	Clips []Clip `json:"clips"`
}

// Clip is one element on a track. Start and Length are output-timeline
// seconds; video clips also carry the source trim offset.
type Clip struct {
	Asset      Asset       `json:"asset"`
	Start      float64     `json:"start"`
	Length     float64     `json:"length"`
	Transition *Transition `json:"transition,omitempty"`
}

type Asset struct {
	Type     string  `json:"type"` // "video" | "html"
	Src      string  `json:"src,omitempty"`
	Trim     float64 `json:"trim,omitempty"` // Source-timeline offset in seconds
	HTML     string  `json:"html,omitempty"`
	CSS      string  `json:"css,omitempty"`
	Position string  `json:"position,omitempty"`
}

type Transition struct {
	In  string `json:"in"`
	Out string `json:"out"`
}

type Output struct {
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	FPS         int    `json:"fps"`
	AspectRatio string `json:"aspect_ratio"`
}

// styleSpec is the treatment for one subtitle style: where the text block
// sits and how it is drawn.
type styleSpec struct {
	position string
	css      string
}

var subtitleStyles = map[models.SubtitleStyle]styleSpec{
	models.SubtitleBoldCentered: {
		position: "center",
		css:      "p { font-family: 'Montserrat ExtraBold', sans-serif; font-size: 72px; font-weight: 800; color: #ffffff; text-align: center; text-shadow: 0 4px 14px rgba(0,0,0,0.85); }",
	},
	models.SubtitleBottomBar: {
		position: "bottom",
		css:      "p { font-family: 'Inter', sans-serif; font-size: 52px; color: #ffffff; text-align: center; background-color: rgba(0,0,0,0.65); padding: 18px 28px; border-radius: 8px; }",
	},
	models.SubtitleKaraokeHighlight: {
		position: "bottom",
		css:      "p { font-family: 'Montserrat ExtraBold', sans-serif; font-size: 64px; font-weight: 800; color: #111111; text-align: center; background-color: #ffe135; padding: 10px 22px; border-radius: 10px; }",
	},
	models.SubtitleMinimalLeft: {
		position: "left",
		css:      "p { font-family: 'Inter', sans-serif; font-size: 44px; font-weight: 400; color: #f2f2f2; text-align: left; letter-spacing: 0.02em; }",
	},
}

// Build assembles the composition for the given segments. Segments are
// ordered by segment_index; each video clip is trimmed to its source range
// and placed back-to-back on the output timeline with no gaps. Subtitle text
// is HTML-escaped before it reaches the markup-based overlay renderer.
func Build(segments []models.VideoSegment, subtitleStyle models.SubtitleStyle, transitionStyle models.TransitionStyle, sourceURL, callbackURL string) (Composition, error) {
	if len(segments) == 0 {
		return Composition{}, fmt.Errorf("composer: no segments to compose")
	}
	if sourceURL == "" {
		return Composition{}, fmt.Errorf("composer: source URL is empty")
	}
	style, ok := subtitleStyles[subtitleStyle]
	if !ok {
		return Composition{}, fmt.Errorf("composer: unknown subtitle style %q", subtitleStyle)
	}
	if !transitionStyle.Valid() {
		return Composition{}, fmt.Errorf("composer: unknown transition style %q", transitionStyle)
	}

	ordered := make([]models.VideoSegment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].SegmentIndex < ordered[j].SegmentIndex
	})

	var transition *Transition
	if transitionStyle != models.TransitionCut {
		transition = &Transition{In: string(transitionStyle), Out: string(transitionStyle)}
	}

	videoClips := make([]Clip, 0, len(ordered))
	overlayClips := make([]Clip, 0, len(ordered))
	cursor := 0.0 // output-timeline seconds, running sum of prior durations

	for _, seg := range ordered {
		if seg.EndMs <= seg.StartMs {
			return Composition{}, fmt.Errorf("composer: segment %d has end_ms %d <= start_ms %d", seg.SegmentIndex, seg.EndMs, seg.StartMs)
		}
		length := float64(seg.EndMs-seg.StartMs) / 1000

		videoClips = append(videoClips, Clip{
			Asset: Asset{
				Type: "video",
				Src:  sourceURL,
				Trim: float64(seg.StartMs) / 1000,
			},
			Start:      cursor,
			Length:     length,
			Transition: transition,
		})

		if seg.Subtitle != "" {
			overlayClips = append(overlayClips, Clip{
				Asset: Asset{
					Type:     "html",
					HTML:     "<p>" + html.EscapeString(seg.Subtitle) + "</p>",
					CSS:      style.css,
					Position: style.position,
				},
				Start:  cursor,
				Length: length,
			})
		}

		cursor += length
	}

	tracks := []Track{{Clips: videoClips}}
	if len(overlayClips) > 0 {
		tracks = append(tracks, Track{Clips: overlayClips})
	}

	return Composition{
		Timeline: Timeline{Tracks: tracks},
		Output: Output{
			Format:      OutputFormat,
			Width:       OutputWidth,
			Height:      OutputHeight,
			FPS:         OutputFPS,
			AspectRatio: "9:16",
		},
		CallbackURL: callbackURL,
	}, nil
}
