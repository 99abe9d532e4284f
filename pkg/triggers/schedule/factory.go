package schedule

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

func NewScheduleTriggerFactory() protocol.TriggerFactory {
	return &ScheduleTriggerFactory{}
}

type ScheduleTriggerFactory struct{}

func (f *ScheduleTriggerFactory) ID() string {
	return "schedule"
}

func (f *ScheduleTriggerFactory) Name() string {
	return "Schedule"
}

func (f *ScheduleTriggerFactory) Description() string {
	return "Trigger workflow execution based on cron or interval schedule expressions"
}

func (f *ScheduleTriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type":        "object",
		"title":       "Schedule Trigger Configuration",
		"description": "Configuration for time-based workflow triggering",
		"properties": map[string]any{
			"cron": map[string]any{
				"type":        "string",
				"description": "Cron expression defining the schedule (standard 5-field format)",
				"examples": []string{
					"0 9 * * *",    // Daily at 9 AM
					"*/15 * * * *", // Every 15 minutes
					"0 0 1 * *",    // First day of every month
					"0 18 * * 5",   // Every Friday at 6 PM
				},
			},
			"interval": map[string]any{
				"type":        "string",
				"description": "Interval expression: 'every N seconds|minutes|hours|days [at HH:MM]'",
				"pattern":     `^every\s+(\d+\s+)?(second|minute|hour|day)s?(\s+at\s+\d{1,2}:\d{2})?$`,
				"examples": []string{
					"every 5 minutes",
					"every 1 hour",
					"every 1 day at 09:00",
				},
			},
			"enabled": map[string]any{
				"type":        "boolean",
				"description": "Whether this trigger is active",
				"default":     true,
				"examples":    []bool{true, false},
			},
		},
		"oneOf": []map[string]any{
			{"required": []string{"cron"}},
			{"required": []string{"interval"}},
		},
		"examples": []map[string]any{
			{
				"cron":    "0 2 * * *",
				"enabled": true,
			},
			{
				"interval": "every 15 minutes",
			},
			{
				"interval": "every 1 day at 09:00",
			},
		},
	}
}

func (f *ScheduleTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create schedule trigger: %w", err)
	}

	return trigger, nil
}
