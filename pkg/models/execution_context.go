package models

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// ExecutionContext is the run-scoped state shared by every action of one
// workflow run. The engine creates exactly one per run; concurrent runs
// never share an instance.
type ExecutionContext struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"`
	StartedAt     time.Time      `json:"started_at"`
	TriggerData   map[string]any `json:"trigger_data,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	ActionResults map[string]any `json:"action_results,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// NewExecutionContext builds a fresh context for one run, seeded with the
// triggering event data and the run metadata. The trigger data is copied so
// the caller's map is never mutated by actions.
func NewExecutionContext(workflowID string, triggerData map[string]any) *ExecutionContext {
	ec := &ExecutionContext{
		ID:            "run-" + uuid.New().String()[:8],
		WorkflowID:    workflowID,
		StartedAt:     time.Now().UTC(),
		TriggerData:   make(map[string]any, len(triggerData)),
		Variables:     make(map[string]any),
		ActionResults: make(map[string]any),
		Metadata:      make(map[string]any),
	}
	maps.Copy(ec.TriggerData, triggerData)

	return ec
}

// AsMap exposes the context as the single mapping actions and templates
// read from. Action results live under their action id inside
// "action_results"; the run metadata section carries workflow id, run id
// and start time.
func (ec *ExecutionContext) AsMap() map[string]any {
	metadata := map[string]any{
		"workflow_id": ec.WorkflowID,
		"run_id":      ec.ID,
		"started_at":  ec.StartedAt.Format(time.RFC3339),
	}
	maps.Copy(metadata, ec.Metadata)

	return map[string]any{
		"trigger_data":   ec.TriggerData,
		"variables":      ec.Variables,
		"action_results": ec.ActionResults,
		"metadata":       metadata,
	}
}
