package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"github.com/dream-anchor/creatoros-reels/config"
	"github.com/dream-anchor/creatoros-reels/handlers"
	"github.com/dream-anchor/creatoros-reels/internal/fetch"
	"github.com/dream-anchor/creatoros-reels/internal/objstore"
	"github.com/dream-anchor/creatoros-reels/internal/renderer"
	"github.com/dream-anchor/creatoros-reels/internal/selector"
	"github.com/dream-anchor/creatoros-reels/internal/transcribe"
	"github.com/dream-anchor/creatoros-reels/internal/vision"
	"github.com/dream-anchor/creatoros-reels/middleware"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	config.InitLogger()
	log := config.Log

	if err := config.InitSupabase(); err != nil {
		log.WithError(err).Fatal("Failed to initialize Supabase")
	}

	visionClient := vision.New(
		config.Getenv("VISION_API_URL", "https://api.openai.com"),
		config.Getenv("VISION_API_KEY", ""),
		config.Getenv("VISION_MODEL", "gpt-4o-mini"),
	)
	transcribeClient := transcribe.New(
		config.Getenv("TRANSCRIBE_API_URL", "https://api.openai.com"),
		config.Getenv("TRANSCRIBE_API_KEY", ""),
		config.Getenv("TRANSCRIBE_MODEL", "whisper-1"),
	)
	selectorClient := selector.New(
		config.Getenv("SELECTOR_API_URL", "https://api.openai.com"),
		config.Getenv("SELECTOR_API_KEY", ""),
		config.Getenv("SELECTOR_MODEL", "gpt-4o"),
	)
	renderClient := renderer.New(
		config.Getenv("RENDER_API_URL", ""),
		config.Getenv("RENDER_API_KEY", ""),
	)
	store := objstore.New(
		config.GetSupabaseURL(),
		config.GetSupabaseKey(),
		config.Getenv("RENDER_BUCKET", "rendered-videos"),
	)

	callbackURL := strings.TrimRight(config.Getenv("CALLBACK_BASE_URL", ""), "/") + "/api/v1/callbacks/render"

	h := handlers.NewApplicationHandler(log, config.SupabaseClient, visionClient, transcribeClient, selectorClient, renderClient, fetch.New(), store, callbackURL)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "ok",
			"message": "Reel pipeline is healthy",
		})
	})

	apiV1 := app.Group("/api/v1")

	// Project lifecycle
	apiV1.Post("/projects", h.CreateProject)
	apiV1.Get("/projects", h.GetProjects)
	apiV1.Get("/projects/:id", h.GetProject)
	apiV1.Patch("/projects/:id", h.UpdateProject)

	// Pipeline stages
	apiV1.Post("/projects/:id/analyze-frames", h.AnalyzeFrames)
	apiV1.Post("/projects/:id/transcribe", h.TranscribeProject)
	apiV1.Post("/projects/:id/select-segments", h.SelectSegments)
	apiV1.Post("/projects/:id/render", h.StartRender)

	// Segment editing
	apiV1.Get("/projects/:projectId/segments", h.ListSegments)
	apiV1.Patch("/projects/:projectId/segments/:segmentId", h.UpdateSegment)

	// Render service notifications
	apiV1.Post("/callbacks/render", h.RenderCallback)

	port := config.Getenv("PORT", "8080")
	log.WithField("port", port).Info("Starting reel pipeline API")
	if err := app.Listen(":" + port); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
