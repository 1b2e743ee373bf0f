package main

import (
	"log/slog"

	"github.com/dukex/graphflow/pkg/persistence"
	"github.com/dukex/graphflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	orchestrator web.Orchestrator
	runner       web.GraphRunner
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	orchestrator web.Orchestrator,
	runner web.GraphRunner,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		orchestrator: orchestrator,
		runner:       runner,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.orchestrator, a.runner, a.persistence, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("graphflow API")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Post("/runs", handlers.RunGraph)

	p := app.Group("/pipelines")
	p.Post("/", handlers.CreatePipeline)
	p.Get("/:id", handlers.GetPipeline)
	p.Post("/:id/pause", handlers.PausePipeline)
	p.Post("/:id/resume", handlers.ResumePipeline)
	p.Post("/:id/cancel", handlers.CancelPipeline)

	return app
}
