package kafka

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

var ErrConfigNil = errors.New("config cannot be nil")

func NewKafkaTriggerFactory() protocol.TriggerFactory {
	return &KafkaTriggerFactory{}
}

type KafkaTriggerFactory struct{}

func (f *KafkaTriggerFactory) ID() string {
	return "kafka"
}

func (f *KafkaTriggerFactory) Name() string {
	return "Kafka"
}

func (f *KafkaTriggerFactory) Description() string {
	return "Trigger workflows from messages on a Kafka topic"
}

func (f *KafkaTriggerFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Kafka topic to consume messages from",
				"examples":    []string{"workflow-events", "orders.created"},
			},
			"consumer_group": map[string]any{
				"type":        "string",
				"description": "Consumer group ID. Defaults to a group derived from the trigger ID.",
				"examples":    []string{"taskmaster-orders"},
			},
			"brokers": map[string]any{
				"type":        "string",
				"description": "Comma-separated broker addresses. Falls back to the KAFKA_BROKERS environment variable, then localhost:9092.",
				"examples":    []string{"localhost:9092", "kafka-1:9092,kafka-2:9092"},
			},
			"enabled": map[string]any{
				"type":        "boolean",
				"description": "Whether the trigger is enabled",
				"default":     true,
			},
		},
		"required": []string{"topic"},
		"examples": []map[string]any{
			{
				"topic": "workflow-events",
			},
			{
				"topic":          "orders.created",
				"consumer_group": "taskmaster-orders",
				"brokers":        "kafka-1:9092,kafka-2:9092",
			},
		},
	}
}

func (f *KafkaTriggerFactory) Create(config map[string]any, logger *slog.Logger) (protocol.Trigger, error) {
	if config == nil {
		return nil, ErrConfigNil
	}

	trigger, err := NewTrigger(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka trigger: %w", err)
	}

	return trigger, nil
}
