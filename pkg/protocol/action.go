// Package protocol defines the capability contracts the workflow core
// consumes: anything implementing Action is executable by the engine,
// anything implementing Trigger can fire a workflow. Factories create
// instances from configuration maps and describe themselves for tooling.
package protocol

import (
	"context"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

// Action is a single unit of work. Execute reads and writes only through
// the execution context and its own configuration, returning the value to
// store under the action's id. Errors are contained by the engine; they
// never abort the surrounding run.
type Action interface {
	Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc func(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error)

func (f ActionFunc) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	return f(ctx, executionCtx, logger)
}

// ActionFactory creates action instances of one type and provides metadata
// about it. Only the configuration loader talks to factories; the engine
// sees finished Actions.
type ActionFactory interface {
	// Create builds a new action instance from the given configuration.
	Create(config map[string]any) (Action, error)

	// ID returns the unique identifier for this action type.
	ID() string

	// Name returns the human-readable name for this action type.
	Name() string

	// Description returns a description of what this action does.
	Description() string

	// Schema returns the JSON schema for configuring this action.
	Schema() map[string]any
}
