package logaction

import (
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

func NewLogActionFactory() protocol.ActionFactory {
	return &LogActionFactory{}
}

type LogActionFactory struct{}

func (f *LogActionFactory) ID() string {
	return "log"
}

func (f *LogActionFactory) Name() string {
	return "Log"
}

func (f *LogActionFactory) Description() string {
	return "Writes a templated message to the workflow run log"
}

func (f *LogActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to log. Supports templating against the run context.",
				"examples": []string{
					"workflow started",
					"fetched {{.action_results.fetch.status_code}} from upstream",
					"order {{.trigger_data.body.order_id}} received",
				},
			},
			"level": map[string]any{
				"type":        "string",
				"enum":        []string{"debug", "info", "warn", "error"},
				"description": "Log level for the message",
				"default":     "info",
			},
		},
		"required": []string{"message"},
	}
}

func (f *LogActionFactory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAction(config)
}
