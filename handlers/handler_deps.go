package handlers

import (
	"context"

	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"github.com/dream-anchor/creatoros-reels/internal/composer"
	"github.com/dream-anchor/creatoros-reels/internal/selector"
	"github.com/dream-anchor/creatoros-reels/internal/vision"
	"github.com/dream-anchor/creatoros-reels/models"
)

// FrameJudge scores a single frame image for short-form suitability.
type FrameJudge interface {
	JudgeFrame(ctx context.Context, imageBase64 string) (vision.Judgement, error)
}

// Transcriber turns downloaded media into a word-timestamped transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, media []byte, filename string) (*models.Transcript, error)
}

// SegmentPlanner runs the reasoning-model selection over frames + transcript.
type SegmentPlanner interface {
	Select(ctx context.Context, req selector.Request) ([]selector.Segment, error)
}

// RenderSubmitter submits a composition and returns the external job id.
type RenderSubmitter interface {
	Submit(ctx context.Context, comp composer.Composition) (string, error)
}

// MediaDownloader fetches externally supplied media with the SSRF guard
// applied to the URL and every redirect hop.
type MediaDownloader interface {
	Fetch(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error)
}

// ArtifactStore persists finished artifacts durably.
type ArtifactStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	PublicURL(path string) string
}

// ApplicationHandler holds shared dependencies for handlers.
type ApplicationHandler struct {
	Logger      *logrus.Logger
	DB          *supa.Client
	Vision      FrameJudge
	Transcriber Transcriber
	Planner     SegmentPlanner
	Renderer    RenderSubmitter
	Downloader  MediaDownloader
	Store       ArtifactStore

	// CallbackURL is the public URL the render service notifies on
	// completion.
	CallbackURL string

	// AnalysisConcurrency bounds parallel vision calls per batch.
	AnalysisConcurrency int
}

// NewApplicationHandler creates a new ApplicationHandler with the given
// dependencies.
func NewApplicationHandler(logger *logrus.Logger, db *supa.Client, frameJudge FrameJudge, transcriber Transcriber, planner SegmentPlanner, submitter RenderSubmitter, downloader MediaDownloader, store ArtifactStore, callbackURL string) *ApplicationHandler {
	return &ApplicationHandler{
		Logger:              logger,
		DB:                  db,
		Vision:              frameJudge,
		Transcriber:         transcriber,
		Planner:             planner,
		Renderer:            submitter,
		Downloader:          downloader,
		Store:               store,
		CallbackURL:         callbackURL,
		AnalysisConcurrency: 3,
	}
}
