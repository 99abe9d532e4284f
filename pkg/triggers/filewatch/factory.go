package filewatch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

func NewFileTriggerFactory() protocol.TriggerFactory {
	return &FileTriggerFactory{}
}

type FileTriggerFactory struct{}

func (f *FileTriggerFactory) ID() string {
	return "file"
}

func (f *FileTriggerFactory) Name() string {
	return "File"
}

func (f *FileTriggerFactory) Description() string {
	return "Trigger workflows from filesystem events such as files being created, modified or deleted"
}

func (f *FileTriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Directory to watch",
				"examples":    []string{"/var/incoming", "./data"},
			},
			"patterns": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Glob patterns a file name must match to fire the trigger. Empty matches everything.",
				"examples":    []any{[]string{"*.csv"}, []string{"*.json", "*.yaml"}},
			},
			"ignore_patterns": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Glob patterns for file names to ignore",
				"examples":    []any{[]string{"*.tmp", ".*"}},
			},
			"events": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "string",
					"enum": []string{"created", "modified", "deleted"},
				},
				"description": "Event types to fire on. Defaults to all three.",
			},
			"recursive": map[string]any{
				"type":        "boolean",
				"description": "Whether to watch subdirectories",
				"default":     true,
			},
			"debounce": map[string]any{
				"type":        "number",
				"description": "Seconds within which repeated events for the same file are collapsed",
				"default":     0.5,
			},
			"enabled": map[string]any{
				"type":        "boolean",
				"description": "Whether the trigger is enabled",
				"default":     true,
			},
		},
		"required": []string{"path"},
		"examples": []map[string]any{
			{
				"path":     "/var/incoming",
				"patterns": []string{"*.csv"},
				"events":   []string{"created"},
			},
		},
	}
}

func (f *FileTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file trigger: %w", err)
	}

	return trigger, nil
}
