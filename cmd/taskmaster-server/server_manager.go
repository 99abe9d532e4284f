package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/persistence"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

// ServerManager restores stored workflow definitions into a runner at
// boot and keeps the process alive consuming trigger events until a
// shutdown signal arrives.
type ServerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	loader      *config.Loader
	runner      *workflow.Runner
}

func NewServerManager(
	id string,
	persistence persistence.Persistence,
	logger *slog.Logger,
	loader *config.Loader,
	runner *workflow.Runner,
) *ServerManager {
	return &ServerManager{
		id:          id,
		logger:      logger.With("module", "taskmaster-server", "server_id", id),
		persistence: persistence,
		loader:      loader,
		runner:      runner,
	}
}

func (s *ServerManager) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Starting server manager", "server_id", s.id)

	s.restoreWorkflows(ctx)

	err := s.runner.Subscribe(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	s.logger.InfoContext(ctx, "Server started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	s.logger.InfoContext(ctx, "Shutting down server...")

	if err := s.runner.StopAll(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Some workflows did not deactivate cleanly", "error", err)
	}

	return nil
}

// restoreWorkflows registers every stored definition with the runner and
// activates the ones marked active. A definition that no longer builds
// is logged and skipped so one broken workflow cannot hold up the rest.
func (s *ServerManager) restoreWorkflows(ctx context.Context) {
	defs, err := s.persistence.Workflows(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch stored workflows", "error", err)

		return
	}

	registered := 0
	started := 0

	for _, def := range defs {
		logger := s.logger.With("workflow_id", def.ID)

		wf, err := s.loader.Build(def)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to build stored workflow", "error", err)

			continue
		}

		if err := s.runner.Register(wf); err != nil {
			logger.ErrorContext(ctx, "Failed to register stored workflow", "error", err)

			continue
		}

		registered++

		if !def.IsActive() {
			continue
		}

		if err := s.runner.Start(ctx, def.ID); err != nil {
			logger.ErrorContext(ctx, "Failed to activate stored workflow", "error", err)

			continue
		}

		started++
	}

	s.logger.InfoContext(ctx, "Restored stored workflows",
		"total", len(defs), "registered", registered, "active", started)
}
