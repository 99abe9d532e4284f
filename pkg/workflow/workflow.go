package workflow

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

// Trigger is one event source attached to a workflow: the listening
// capability plus the identity it is tracked under.
type Trigger struct {
	ID     string
	Name   string
	Source protocol.Trigger
}

// NewTrigger wraps a trigger implementation into a workflow node. A
// missing id is generated; a missing name is derived from the id.
func NewTrigger(id, name string, source protocol.Trigger) *Trigger {
	if id == "" {
		id = uuid.New().String()
	}

	if name == "" {
		name = "trigger_" + shortID(id)
	}

	return &Trigger{ID: id, Name: name, Source: source}
}

// TriggerBinder produces the callback a trigger fires into. The runner
// binds each trigger to a callback that publishes the firing onto the
// event bus; tests bind whatever they want to observe.
type TriggerBinder func(t *Trigger) protocol.TriggerCallback

// Workflow is the runnable aggregate: the action graph, the attached
// triggers and the active/inactive lifecycle state. Structural changes
// are rejected while the workflow is active so a mutation can never
// overlap listening triggers or the order computation of a starting run.
type Workflow struct {
	id          string
	name        string
	description string
	graph       *Graph

	mu           sync.RWMutex
	variables    map[string]any
	triggers     map[string]*Trigger
	triggerOrder []string
	active       bool
}

// New creates an empty inactive workflow. A missing id is generated.
func New(id, name, description string) *Workflow {
	if id == "" {
		id = uuid.New().String()
	}

	return &Workflow{
		id:          id,
		name:        name,
		description: description,
		graph:       NewGraph(id),
		variables:   make(map[string]any),
		triggers:    make(map[string]*Trigger),
	}
}

func (w *Workflow) ID() string          { return w.id }
func (w *Workflow) Name() string        { return w.name }
func (w *Workflow) Description() string { return w.description }

// IsActive reports whether the workflow's triggers are listening.
func (w *Workflow) IsActive() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.active
}

// Variables returns a copy of the workflow-level variables seeded into
// every run's context.
func (w *Workflow) Variables() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()

	vars := make(map[string]any, len(w.variables))
	maps.Copy(vars, w.variables)

	return vars
}

// SetVariables replaces the workflow-level variables. Rejected while the
// workflow is active.
func (w *Workflow) SetVariables(variables map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		return NewRunnerError("SetVariables", w.id, ErrWorkflowActive)
	}

	w.variables = make(map[string]any, len(variables))
	maps.Copy(w.variables, variables)

	return nil
}

// AddAction registers an action in the graph. Fails on id collision and
// while the workflow is active.
func (w *Workflow) AddAction(action *Action) error {
	if err := w.ensureInactive("AddAction"); err != nil {
		return err
	}

	return w.graph.AddAction(action)
}

// AddDependency records an execution-order edge between two registered
// actions. Fails on unknown ids, on edges that would close a cycle and
// while the workflow is active. The graph is unchanged on failure.
func (w *Workflow) AddDependency(actionID, dependencyID string) error {
	if err := w.ensureInactive("AddDependency"); err != nil {
		return err
	}

	return w.graph.AddDependency(actionID, dependencyID)
}

// AddTrigger attaches an event source. Fails on id collision and while
// the workflow is active.
func (w *Workflow) AddTrigger(trigger *Trigger) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active {
		return NewTriggerError("AddTrigger", w.id, trigger.ID, ErrWorkflowActive)
	}

	if _, exists := w.triggers[trigger.ID]; exists {
		return NewTriggerError("AddTrigger", w.id, trigger.ID, ErrDuplicateID)
	}

	w.triggers[trigger.ID] = trigger
	w.triggerOrder = append(w.triggerOrder, trigger.ID)

	return nil
}

func (w *Workflow) ensureInactive(op string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.active {
		return NewRunnerError(op, w.id, ErrWorkflowActive)
	}

	return nil
}

// TopologicalOrder returns the actions in dependency order with
// insertion-order tie-break.
func (w *Workflow) TopologicalOrder() ([]*Action, error) {
	return w.graph.TopologicalOrder()
}

// Actions returns the actions in insertion order.
func (w *Workflow) Actions() []*Action {
	return w.graph.Actions()
}

// Dependencies returns the dependency ids of one action.
func (w *Workflow) Dependencies(actionID string) []string {
	return w.graph.Dependencies(actionID)
}

// Triggers returns the attached triggers in insertion order.
func (w *Workflow) Triggers() []*Trigger {
	w.mu.RLock()
	defer w.mu.RUnlock()

	triggers := make([]*Trigger, 0, len(w.triggerOrder))
	for _, id := range w.triggerOrder {
		triggers = append(triggers, w.triggers[id])
	}

	return triggers
}

// Activate marks the workflow active and starts every trigger with the
// callback the binder produces for it. Starting is best-effort: a failing
// trigger does not prevent the remaining ones from being attempted, and
// the collected failures are returned together after all attempts.
// Activating an active workflow is a no-op.
func (w *Workflow) Activate(ctx context.Context, bind TriggerBinder) error {
	w.mu.Lock()

	if w.active {
		w.mu.Unlock()

		return nil
	}

	w.active = true
	triggers := make([]*Trigger, 0, len(w.triggerOrder))

	for _, id := range w.triggerOrder {
		triggers = append(triggers, w.triggers[id])
	}
	w.mu.Unlock()

	var errs []error

	for _, trigger := range triggers {
		callback := nopCallback
		if bind != nil {
			callback = bind(trigger)
		}

		if err := trigger.Source.Start(ctx, callback); err != nil {
			errs = append(errs, NewTriggerActivationError(w.id, trigger.ID, err))
		}
	}

	return errors.Join(errs...)
}

// Deactivate stops every trigger and marks the workflow inactive.
// Stopping is best-effort and the workflow always ends up inactive;
// failures are returned together after all attempts. Deactivating an
// inactive workflow is a no-op.
func (w *Workflow) Deactivate(ctx context.Context) error {
	w.mu.Lock()

	if !w.active {
		w.mu.Unlock()

		return nil
	}

	w.active = false
	triggers := make([]*Trigger, 0, len(w.triggerOrder))

	for _, id := range w.triggerOrder {
		triggers = append(triggers, w.triggers[id])
	}
	w.mu.Unlock()

	var errs []error

	for _, trigger := range triggers {
		if err := trigger.Source.Stop(ctx); err != nil {
			errs = append(errs, NewTriggerError("Deactivate", w.id, trigger.ID, err))
		}
	}

	return errors.Join(errs...)
}

// Summary returns the read-only view the runner exposes.
func (w *Workflow) Summary() *models.WorkflowSummary {
	w.mu.RLock()
	triggerCount := len(w.triggers)
	active := w.active
	w.mu.RUnlock()

	return &models.WorkflowSummary{
		ID:       w.id,
		Name:     w.name,
		Active:   active,
		Actions:  w.graph.Len(),
		Triggers: triggerCount,
	}
}

func nopCallback(_ context.Context, _ map[string]any) error {
	return nil
}
