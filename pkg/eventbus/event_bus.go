// Package eventbus provides the message-passing layer between triggers,
// the runner and any observer of run outcomes. Trigger firings never call
// into the engine directly; they travel through this bus.
package eventbus

import (
	"context"

	"github.com/taskmaster-io/taskmaster/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber consumes events. Handle registers handlers per event
// type and must be called before Subscribe starts the consuming loop.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
