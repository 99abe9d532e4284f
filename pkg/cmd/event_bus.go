package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/taskmaster-io/taskmaster/pkg/channels/gochannel"
	kafkachannel "github.com/taskmaster-io/taskmaster/pkg/channels/kafka"
	"github.com/taskmaster-io/taskmaster/pkg/eventbus"
)

// NewEventBus builds the event bus for the given provider: "kafka" for
// the broker-backed bus, anything else for the in-process channel bus.
func NewEventBus(provider string, logger *slog.Logger) eventbus.EventBus {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		pub, sub, err := kafkachannel.CreateChannel(wmLogger, "taskmaster")
		if err != nil {
			panic(fmt.Errorf("failed to create Kafka pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	default:
		pub, sub, err := gochannel.CreateChannel(wmLogger)
		if err != nil {
			panic(fmt.Errorf("failed to create channel pub/sub: %w", err))
		}

		return eventbus.NewWatermillEventBus(pub, sub)
	}
}
