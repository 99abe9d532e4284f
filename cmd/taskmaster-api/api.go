// Package main provides the Taskmaster API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/persistence"
	"github.com/taskmaster-io/taskmaster/pkg/registry"
	"github.com/taskmaster-io/taskmaster/pkg/web"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	runner      *workflow.Runner
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	runner *workflow.Runner,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		runner:      runner,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	loader := config.NewLoader(a.logger, a.registry)
	handlers := web.NewAPIHandlers(a.persistence, loader, a.runner, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Taskmaster API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/register", handlers.RegisterWorkflow)
	w.Post("/:id/unregister", handlers.UnregisterWorkflow)
	w.Post("/:id/start", handlers.StartWorkflow)
	w.Post("/:id/stop", handlers.StopWorkflow)
	w.Post("/:id/run", handlers.RunWorkflow)
	w.Get("/:id/status", handlers.GetWorkflowStatus)

	app.Get("/runner", handlers.GetRunnerStatus)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
