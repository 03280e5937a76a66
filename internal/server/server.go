// Package server assembles the HTTP application.
package server

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/speech-align-viz/internal/config"
	"github.com/codebuildervaibhav/speech-align-viz/internal/handlers"
	"github.com/codebuildervaibhav/speech-align-viz/internal/queue"
	"github.com/codebuildervaibhav/speech-align-viz/internal/storage"
)

// Deps are the long-lived components the routes need. DB, Pool and Logs may
// be nil; the routes that need them then respond without them.
type Deps struct {
	Cache *storage.Cache
	DB    *storage.MetadataDB
	Pool  *queue.WorkerPool
	Logs  *LogBuffer
}

// New builds the fiber app with all routes mounted
func New(cfg *config.Config, deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Output: log.StandardLogger().Writer(),
		Format: "${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept",
		ExposeHeaders: "X-Transcript-Format, X-Transcript-Skipped, X-Transcript-Warnings",
	}))

	// Initialize handlers
	audioHandler := handlers.NewAudioHandler(deps.Cache)
	transcriptHandler := handlers.NewTranscriptHandler(deps.Cache, deps.DB)
	watchHandler := handlers.NewWatchHandler()

	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api.Post("/audio/upload", audioHandler.Upload)
	api.Post("/audio/local", audioHandler.Local)
	api.Get("/files/:filename", audioHandler.ServeFile)
	api.Get("/stream_local", audioHandler.StreamLocal)

	api.Post("/transcript/upload", transcriptHandler.Upload)
	api.Post("/transcript/local", transcriptHandler.Local)
	api.Get("/transcripts", transcriptHandler.List)

	if deps.Pool != nil {
		figureHandler := handlers.NewFigureHandler(deps.Pool, deps.Cache, deps.DB)
		api.Post("/figure", figureHandler.Create)
		api.Get("/figure/:id", figureHandler.Status)
	}

	api.Get("/logs", func(c *fiber.Ctx) error {
		lines := []string{}
		if deps.Logs != nil {
			lines = deps.Logs.Lines()
		}
		return c.JSON(fiber.Map{"logs": lines})
	})

	// WebSocket route
	app.Get("/ws/transcript", watchHandler.Upgrade, websocket.New(watchHandler.Handle))

	mountFrontend(app, cfg.Frontend.StaticDir)
	return app
}

// mountFrontend serves the built frontend at "/" when the directory exists
func mountFrontend(app *fiber.App, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.WithField("dir", dir).Debug("Frontend directory not found, serving API only")
		return
	}
	app.Static("/", dir)
	log.WithField("dir", dir).Info("Serving frontend")
}

// errorHandler keeps the {"error", "detail", "code"} body for errors that
// escape the handlers, such as unknown routes.
func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "ERR_INTERNAL"
	if e, ok := err.(*fiber.Error); ok {
		status = e.Code
		switch status {
		case fiber.StatusNotFound:
			code = "ERR_NOT_FOUND"
		case fiber.StatusRequestEntityTooLarge:
			code = "ERR_TOO_LARGE"
		case fiber.StatusUpgradeRequired:
			code = "ERR_UPGRADE_REQUIRED"
		default:
			code = "ERR_HTTP"
		}
	} else {
		log.WithError(err).Error("Unhandled request error")
	}
	return c.Status(status).JSON(fiber.Map{
		"error":  err.Error(),
		"detail": err.Error(),
		"code":   code,
	})
}
