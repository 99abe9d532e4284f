// Package logaction provides an action that writes a templated message to
// the run log.
package logaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/template"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

type Action struct {
	Message string
	Level   string
}

func NewAction(config map[string]any) (*Action, error) {
	message, _ := config["message"].(string)
	if message == "" {
		return nil, errors.New("log action requires a message")
	}

	level, _ := config["level"].(string)
	if level == "" {
		level = "info"
	}

	if _, ok := logLevels[level]; !ok {
		return nil, fmt.Errorf("invalid log level %q, must be one of debug, info, warn, error", level)
	}

	_, err := template.Parse(message)
	if err != nil {
		return nil, fmt.Errorf("invalid message template: %w", err)
	}

	return &Action{
		Message: message,
		Level:   level,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	rendered, err := template.RenderWithContext(a.Message, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render message template: %w", err)
	}

	message := fmt.Sprintf("%v", rendered)

	logger.With("action_type", "log").Log(ctx, logLevels[a.Level], message)

	return map[string]any{
		"message": message,
		"level":   a.Level,
	}, nil
}
