package web

import "github.com/taskmaster-io/taskmaster/pkg/models"

// CreateWorkflowRequest is the request body for storing a new workflow
// definition. An empty ID is filled with a generated one.
type CreateWorkflowRequest struct {
	ID          string                    `json:"id"`
	Name        string                    `json:"name"        validate:"required,min=3"`
	Description string                    `json:"description"`
	Status      models.WorkflowStatus     `json:"status"      validate:"omitempty,oneof=active inactive"`
	Actions     []*models.WorkflowAction  `json:"actions"     validate:"dive"`
	Triggers    []*models.WorkflowTrigger `json:"triggers"    validate:"dive"`
	Variables   map[string]any            `json:"variables,omitempty"`
	Metadata    map[string]any            `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest is the request body for updating a stored
// definition. Nil fields keep their stored value.
type UpdateWorkflowRequest struct {
	Name        *string                   `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string                   `json:"description,omitempty"`
	Status      *models.WorkflowStatus    `json:"status,omitempty"      validate:"omitempty,oneof=active inactive"`
	Actions     []*models.WorkflowAction  `json:"actions,omitempty"     validate:"omitempty,dive"`
	Triggers    []*models.WorkflowTrigger `json:"triggers,omitempty"    validate:"omitempty,dive"`
	Variables   map[string]any            `json:"variables,omitempty"`
	Metadata    map[string]any            `json:"metadata,omitempty"`
}

// RunWorkflowRequest is the optional request body for an immediate run.
// TriggerData is seeded into the run's execution context.
type RunWorkflowRequest struct {
	TriggerData map[string]any `json:"trigger_data,omitempty"`
}
