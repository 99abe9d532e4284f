package poll

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

func NewPollTriggerFactory() protocol.TriggerFactory {
	return &PollTriggerFactory{}
}

type PollTriggerFactory struct{}

func (f *PollTriggerFactory) ID() string {
	return "poll"
}

func (f *PollTriggerFactory) Name() string {
	return "Poll"
}

func (f *PollTriggerFactory) Description() string {
	return "Trigger workflows by polling an HTTP endpoint and firing when the response changes"
}

func (f *PollTriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"format":      "uri",
				"description": "HTTP or HTTPS URL to poll",
				"examples":    []string{"https://api.example.com/status"},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method for the poll request",
				"default":     "GET",
			},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
				"description":          "Headers sent with each poll request",
			},
			"interval": map[string]any{
				"type":        "number",
				"description": "Seconds between polls",
				"default":     60,
			},
			"condition": map[string]any{
				"type":        "string",
				"enum":        []string{"any_change", "specific_value"},
				"description": "When to fire: any_change fires when the response body differs from the previous poll, specific_value fires whenever the parsed response equals condition_value",
				"default":     "any_change",
			},
			"condition_value": map[string]any{
				"description": "Value the parsed response must equal for the specific_value condition",
			},
			"enabled": map[string]any{
				"type":        "boolean",
				"description": "Whether the trigger is enabled",
				"default":     true,
			},
		},
		"required": []string{"url"},
		"examples": []map[string]any{
			{
				"url":      "https://api.example.com/status",
				"interval": 30,
			},
			{
				"url":             "https://api.example.com/deploys/latest",
				"condition":       "specific_value",
				"condition_value": "finished",
			},
		},
	}
}

func (f *PollTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll trigger: %w", err)
	}

	return trigger, nil
}
