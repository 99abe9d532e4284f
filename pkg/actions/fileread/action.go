// Package fileread provides an action that loads a file into the run
// context.
package fileread

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/template"
)

const (
	formatAuto = "auto"
	formatJSON = "json"
	formatText = "text"
)

type Action struct {
	Path   string
	Format string
}

func NewAction(config map[string]any) (*Action, error) {
	path, _ := config["path"].(string)
	if path == "" {
		return nil, errors.New("file_read action requires a path")
	}

	format, _ := config["format"].(string)
	if format == "" {
		format = formatAuto
	}

	if format != formatAuto && format != formatJSON && format != formatText {
		return nil, fmt.Errorf("invalid file format %q, must be one of auto, json, text", format)
	}

	_, err := template.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path template: %w", err)
	}

	return &Action{
		Path:   path,
		Format: format,
	}, nil
}

// Execute reads the file and returns its content. JSON files come back as
// structured data so later actions can address fields directly; text files
// come back as a string. The auto format tries JSON first and falls back to
// text.
func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "file_read")
	logger.DebugContext(ctx, "Executing file read action")

	pathResult, err := template.RenderWithContext(a.Path, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render path template: %w", err)
	}

	fullPath := fmt.Sprintf("%v", pathResult)

	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", fullPath, err)
	}

	content, err := a.decode(raw, fullPath)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "File read action completed", "file_path", fullPath, "bytes_read", len(raw))

	return map[string]any{
		"file_path":  fullPath,
		"content":    content,
		"bytes_read": len(raw),
	}, nil
}

func (a *Action) decode(raw []byte, fullPath string) (any, error) {
	switch a.Format {
	case formatText:
		return string(raw), nil
	case formatJSON:
		var content any

		err := json.Unmarshal(raw, &content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse '%s' as JSON: %w", fullPath, err)
		}

		return content, nil
	default:
		var content any

		err := json.Unmarshal(raw, &content)
		if err != nil {
			return string(raw), nil
		}

		return content, nil
	}
}
