package queue

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func NewQueueTriggerFactory() protocol.TriggerFactory {
	return &QueueTriggerFactory{}
}

type QueueTriggerFactory struct{}

func (f *QueueTriggerFactory) ID() string {
	return "queue"
}

func (f *QueueTriggerFactory) Name() string {
	return "Queue"
}

func (f *QueueTriggerFactory) Description() string {
	return "Trigger workflow execution from messages on a queue"
}

func (f *QueueTriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Queue Trigger Configuration",
		"description": "Configuration for queue-based workflow triggering",
		"properties": map[string]any{
			"queue": map[string]any{
				"type":        "string",
				"description": "Name of the queue to consume from",
				"examples":    []string{"orders", "incoming-events"},
			},
			"provider": map[string]any{
				"type":        "string",
				"description": "Queue provider backing the trigger",
				"enum":        []string{"redis"},
				"default":     "redis",
			},
			"connection": map[string]any{
				"type":        "object",
				"description": "Provider connection settings",
				"properties": map[string]any{
					"addr":     map[string]any{"type": "string", "examples": []string{"localhost:6379"}},
					"password": map[string]any{"type": "string"},
					"db":       map[string]any{"type": "string", "examples": []string{"0"}},
				},
			},
			"enabled": map[string]any{
				"type":        "boolean",
				"description": "Whether this trigger is active",
				"default":     true,
			},
		},
		"required": []string{"queue"},
		"examples": []map[string]any{
			{
				"queue": "orders",
			},
			{
				"queue":      "incoming-events",
				"provider":   "redis",
				"connection": map[string]any{"addr": "redis:6379", "db": "1"},
			},
		},
	}
}

func (f *QueueTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue trigger: %w", err)
	}

	return trigger, nil
}
