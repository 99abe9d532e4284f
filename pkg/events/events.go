// Package events defines the messages exchanged over the event bus:
// trigger firings on the way in, run and action lifecycle notifications
// on the way out.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster-io/taskmaster/pkg/models"
)

type EventType string

// Topic carries every workflow event.
const Topic = "taskmaster.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Trigger firings.
	WorkflowTriggeredEvent EventType = "workflow.triggered"

	// Run lifecycle.
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"
	RunFailedEvent   EventType = "run.failed"

	// Per-action outcomes.
	ActionFinishedEvent EventType = "action.finished"
	ActionFailedEvent   EventType = "action.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	RunnerID   string         `json:"runner_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowTriggered is published when a trigger fires and consumed by the
// runner, which turns it into an engine run. Firing is fire-and-forget:
// the trigger never sees the run's outcome.
type WorkflowTriggered struct {
	BaseEvent

	TriggerID   string         `json:"trigger_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

// RunStarted marks the beginning of one engine run.
type RunStarted struct {
	BaseEvent

	RunID       string         `json:"run_id"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// RunFinished marks a completed run, whatever the per-action outcomes
// were. ActionStatuses maps action ids to their final status.
type RunFinished struct {
	BaseEvent

	RunID          string                         `json:"run_id"`
	Succeeded      bool                           `json:"succeeded"`
	ActionStatuses map[string]models.ActionStatus `json:"action_statuses,omitempty"`
	Duration       time.Duration                  `json:"duration"`
}

func (r RunFinished) GetType() EventType {
	return RunFinishedEvent
}

// RunFailed marks a run that could not execute at all, e.g. because the
// graph failed its structural re-check.
type RunFailed struct {
	BaseEvent

	RunID    string        `json:"run_id,omitempty"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (r RunFailed) GetType() EventType {
	return RunFailedEvent
}

// ActionFinished marks one successfully executed action within a run.
type ActionFinished struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	ActionID string        `json:"action_id"`
	Duration time.Duration `json:"duration"`
}

func (a ActionFinished) GetType() EventType {
	return ActionFinishedEvent
}

// ActionFailed marks one failed action within a run.
type ActionFailed struct {
	BaseEvent

	RunID    string        `json:"run_id"`
	ActionID string        `json:"action_id"`
	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (a ActionFailed) GetType() EventType {
	return ActionFailedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
