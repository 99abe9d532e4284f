// Package models defines the serializable domain models shared by the
// configuration loader, the persistence layer and the HTTP API. The
// executable side of a workflow lives in pkg/workflow; these types only
// describe one.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"   // Triggers should be listening
	WorkflowStatusInactive WorkflowStatus = "inactive" // Definition only, triggers stopped
)

// Workflow is the declarative definition of a workflow: its actions, the
// dependencies between them and the triggers that fire it. A definition is
// turned into a runnable workflow by the configuration loader.
type Workflow struct {
	ID          string             `json:"id"           yaml:"id"`
	Name        string             `json:"name"         yaml:"name"        validate:"required,min=3"`
	Description string             `json:"description"  yaml:"description"`
	Status      WorkflowStatus     `json:"status"       yaml:"status"      validate:"omitempty,oneof=active inactive"`
	Actions     []*WorkflowAction  `json:"actions"      yaml:"actions"     validate:"dive"`
	Triggers    []*WorkflowTrigger `json:"triggers"     yaml:"triggers"    validate:"dive"`
	Variables   map[string]any     `json:"variables,omitempty" yaml:"variables,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty"  yaml:"metadata,omitempty"`
	CreatedAt   time.Time          `json:"created_at"   yaml:"created_at,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"   yaml:"updated_at,omitempty"`
}

// WorkflowAction describes one node of the action graph. Type selects the
// action factory, Configuration is handed to it verbatim and DependsOn
// lists the ids of actions that must succeed first.
type WorkflowAction struct {
	ID            string         `json:"id"            yaml:"id"            validate:"required"`
	Name          string         `json:"name"          yaml:"name"`
	Type          string         `json:"type"          yaml:"type"          validate:"required"`
	Configuration map[string]any `json:"configuration" yaml:"configuration"`
	DependsOn     []string       `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
}

// WorkflowTrigger describes one event source attached to a workflow.
type WorkflowTrigger struct {
	ID            string         `json:"id"            yaml:"id"            validate:"required"`
	Name          string         `json:"name"          yaml:"name"`
	Type          string         `json:"type"          yaml:"type"          validate:"required"`
	Configuration map[string]any `json:"configuration" yaml:"configuration"`
}

// WorkflowSummary is the runner's read-only view of a registered workflow.
type WorkflowSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Actions  int    `json:"actions"`
	Triggers int    `json:"triggers"`
}

// IsActive reports whether the definition asks for listening triggers.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}
