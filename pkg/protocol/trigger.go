package protocol

import (
	"context"
	"log/slog"
)

// TriggerCallback is invoked by a trigger's listening loop every time its
// watched event occurs. Implementations must be safe to call from any
// goroutine; the data map carries the event payload.
type TriggerCallback func(ctx context.Context, data map[string]any) error

// Trigger is an event source bound to one workflow. Start establishes the
// listening loop and returns promptly; the loop runs on its own goroutines
// and calls the callback on every firing. Stop tears the loop down and is
// idempotent: stopping an already-stopped trigger is a no-op.
type Trigger interface {
	Start(ctx context.Context, callback TriggerCallback) error
	Stop(ctx context.Context) error
	Validate() error
}

// TriggerFactory creates trigger instances of one type and provides
// metadata about it.
type TriggerFactory interface {
	// Create builds a new trigger instance from the given configuration.
	Create(config map[string]any, logger *slog.Logger) (Trigger, error)

	// ID returns the unique identifier for this trigger type.
	ID() string

	// Name returns the human-readable name for this trigger type.
	Name() string

	// Description returns a description of what this trigger reacts to.
	Description() string

	// Schema returns the JSON schema for configuring this trigger.
	Schema() map[string]any
}
