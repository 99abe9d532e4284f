// Package filewrite provides an action that saves run data to a file.
package filewrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/template"
)

type Action struct {
	FileName  string
	Directory string
	Overwrite bool
	Input     string
}

func NewAction(config map[string]any) (*Action, error) {
	fileName, _ := config["file_name"].(string)
	if fileName == "" {
		return nil, errors.New("file_write action requires a file_name")
	}

	directory, _ := config["directory"].(string)
	if directory == "" {
		directory = os.TempDir()
	}

	overwrite, _ := config["overwrite"].(bool)
	input, _ := config["input"].(string)

	_, err := template.Parse(fileName)
	if err != nil {
		return nil, fmt.Errorf("invalid file_name template: %w", err)
	}

	return &Action{
		FileName:  fileName,
		Directory: directory,
		Overwrite: overwrite,
		Input:     input,
	}, nil
}

// Execute writes the extracted data to the configured file. String data is
// written as-is; anything structured is written as indented JSON.
func (a *Action) Execute(ctx context.Context, executionCtx *models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", "file_write")
	logger.DebugContext(ctx, "Executing file write action")

	data, err := a.extract(executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract input data: %w", err)
	}

	content, err := encode(data)
	if err != nil {
		return nil, err
	}

	nameResult, err := template.RenderWithContext(a.FileName, executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render file_name template: %w", err)
	}

	fullPath := filepath.Join(a.Directory, fmt.Sprintf("%v", nameResult))

	if !a.Overwrite {
		_, err := os.Stat(fullPath)
		if err == nil {
			return nil, fmt.Errorf("file '%s' already exists and overwrite is false", fullPath)
		}
	}

	err = os.MkdirAll(a.Directory, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory '%s': %w", a.Directory, err)
	}

	err = os.WriteFile(fullPath, content, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to write file '%s': %w", fullPath, err)
	}

	logger.InfoContext(ctx, "File write action completed", "file_path", fullPath, "bytes_written", len(content))

	return map[string]any{
		"file_path":     fullPath,
		"bytes_written": len(content),
		"success":       true,
	}, nil
}

func encode(data any) ([]byte, error) {
	if str, ok := data.(string); ok {
		return []byte(str), nil
	}

	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data to JSON: %w", err)
	}

	return content, nil
}

func (a *Action) extract(executionCtx *models.ExecutionContext) (any, error) {
	if a.Input == "" {
		return executionCtx.ActionResults, nil
	}

	if strings.Contains(a.Input, "{{") {
		return template.RenderWithContext(a.Input, executionCtx)
	}

	return template.LookupPath(executionCtx.AsMap(), a.Input)
}
