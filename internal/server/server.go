// Package server assembles the HTTP API around the ingest job service.
package server

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makeasinger/samples/internal/config"
	"github.com/makeasinger/samples/internal/handler"
	"github.com/makeasinger/samples/internal/logging"
	"github.com/makeasinger/samples/internal/middleware"
	ws "github.com/makeasinger/samples/internal/websocket"
)

// Deps are the collaborators the routes are bound to
type Deps struct {
	Jobs     handler.IngestJobs
	Files    handler.FileIngester
	Hub      *ws.Hub
	Limiter  *middleware.RateLimiter
	Health   map[string]handler.Checker
	Gatherer prometheus.Gatherer
}

// NewApp builds the fiber app with every route registered
func NewApp(cfg *config.Config, d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		BodyLimit:             handler.MaxUploadSize + 1024*1024,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
		Output: logging.Zone("samples/http").Writer(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-User-Id,X-User-Email",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})
	app.Get("/health", handler.NewHealthHandler(d.Health).Health)
	if d.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Artifacts written by the local store are served back under its base URL
	if cfg.Storage.Backend == "local" {
		app.Static("/artifacts", cfg.Storage.LocalDir)
	}

	var guards []fiber.Handler
	if cfg.Gateway.Enabled {
		guards = append(guards, middleware.GatewayAuthMiddleware())
	}
	api := app.Group("/api", guards...)

	ingestHandler := handler.NewIngestHandler(d.Jobs, validator.New())
	ingest := api.Group("/ingest")
	ingest.Post("/start", d.Limiter.IngestLimit(cfg.RateLimit.IngestPerHour), ingestHandler.Start)
	ingest.Get("/status/:jobId", ingestHandler.Status)
	ingest.Get("/result/:jobId", ingestHandler.Result)
	ingest.Post("/cancel/:jobId", ingestHandler.Cancel)
	if d.Files != nil {
		uploadHandler := handler.NewUploadHandler(d.Files, cfg.Pipeline.Extensions)
		ingest.Post("/upload", d.Limiter.IngestLimit(cfg.RateLimit.IngestPerHour), uploadHandler.Sample)
	}

	if d.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
			d.Hub.HandleConnection(c, c.Params("jobId"))
		}))
	}

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
