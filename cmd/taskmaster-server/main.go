package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/taskmaster-io/taskmaster/pkg/cmd"
	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/log"
	"github.com/taskmaster-io/taskmaster/pkg/otelhelper"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "taskmaster-server",
		Usage:                 "Run stored workflows and consume their trigger events",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-id",
				Aliases: []string{"id"},
				Usage:   "Custom server ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("SERVER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing action and trigger plugins",
				Value:    "./plugins",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := otelhelper.InitTracer(ctx, "taskmaster-server")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			serverID := command.String("server-id")
			if serverID == "" {
				serverID = "server-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("taskmaster-server").With("server_id", serverID)

			logger.InfoContext(ctx, "Initializing Taskmaster Server")

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			executor := workflow.NewExecutor(logger, eventBus)
			runner := workflow.NewRunner(logger, executor, eventBus)
			loader := config.NewLoader(logger, registry)

			server := NewServerManager(
				serverID,
				persistence,
				logger,
				loader,
				runner,
			)

			err = server.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
