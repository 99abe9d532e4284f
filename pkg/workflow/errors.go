// Package workflow implements the execution core: the action graph with
// its structural invariants, the engine that runs one workflow for one
// event, and the runner that owns the registry of workflows and their
// trigger lifecycles.
package workflow

import (
	"errors"
	"fmt"
)

// Standard error kinds surfaced by the workflow core.
var (
	// ErrDuplicateID indicates an action, trigger or workflow id that
	// already exists in its owning collection.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrUnknownAction indicates a dependency referencing an action id
	// that is not part of the workflow.
	ErrUnknownAction = errors.New("unknown action")

	// ErrCycle indicates a dependency edge that would make the graph
	// cyclic.
	ErrCycle = errors.New("dependency cycle")

	// ErrWorkflowNotFound indicates a runner operation on an
	// unregistered workflow id.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowActive indicates a structural change attempted while
	// the workflow's triggers are listening.
	ErrWorkflowActive = errors.New("workflow is active")

	// ErrActionExecution indicates an action's execute contract failed.
	ErrActionExecution = errors.New("action execution failed")

	// ErrTriggerActivation indicates a trigger failed to start listening.
	ErrTriggerActivation = errors.New("trigger activation failed")
)

// GraphError wraps structural graph errors with the ids involved.
type GraphError struct {
	Op           string // Operation being performed (e.g. "AddAction", "AddDependency")
	WorkflowID   string // Owning workflow id
	ActionID     string // Action id if applicable
	DependencyID string // Dependency action id if applicable
	Err          error  // Underlying error kind
}

func (e *GraphError) Error() string {
	if e.DependencyID != "" {
		return fmt.Sprintf("%s failed for action %s (dependency %s) in workflow %s: %v",
			e.Op, e.ActionID, e.DependencyID, e.WorkflowID, e.Err)
	}

	if e.ActionID != "" {
		return fmt.Sprintf("%s failed for action %s in workflow %s: %v", e.Op, e.ActionID, e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *GraphError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for graph errors.
func (e *GraphError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDuplicateIDError reports an id collision during registration.
func NewDuplicateIDError(op, workflowID, actionID string) *GraphError {
	return &GraphError{Op: op, WorkflowID: workflowID, ActionID: actionID, Err: ErrDuplicateID}
}

// NewUnknownActionError reports a dependency against a non-member action.
func NewUnknownActionError(op, workflowID, actionID string) *GraphError {
	return &GraphError{Op: op, WorkflowID: workflowID, ActionID: actionID, Err: ErrUnknownAction}
}

// NewCycleError reports an edge that would close a cycle.
func NewCycleError(op, workflowID, actionID, dependencyID string) *GraphError {
	return &GraphError{Op: op, WorkflowID: workflowID, ActionID: actionID, DependencyID: dependencyID, Err: ErrCycle}
}

// TriggerError wraps trigger lifecycle errors with the ids involved.
type TriggerError struct {
	Op         string // Operation being performed (e.g. "AddTrigger", "Activate", "Deactivate")
	WorkflowID string // Owning workflow id
	TriggerID  string // Trigger id
	Err        error  // Underlying error
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("%s failed for trigger %s in workflow %s: %v", e.Op, e.TriggerID, e.WorkflowID, e.Err)
}

func (e *TriggerError) Unwrap() error {
	return e.Err
}

func (e *TriggerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewTriggerError creates a trigger lifecycle error.
func NewTriggerError(op, workflowID, triggerID string, err error) *TriggerError {
	return &TriggerError{Op: op, WorkflowID: workflowID, TriggerID: triggerID, Err: err}
}

// NewTriggerActivationError reports a trigger that failed to start; the
// original cause is reachable through Unwrap.
func NewTriggerActivationError(workflowID, triggerID string, err error) *TriggerError {
	return &TriggerError{
		Op:         "Activate",
		WorkflowID: workflowID,
		TriggerID:  triggerID,
		Err:        fmt.Errorf("%w: %w", ErrTriggerActivation, err),
	}
}

// RunnerError wraps registry operation errors.
type RunnerError struct {
	Op         string // Operation being performed (e.g. "Register", "Start")
	WorkflowID string // Workflow id
	Err        error  // Underlying error kind
}

func (e *RunnerError) Error() string {
	return fmt.Sprintf("%s failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *RunnerError) Unwrap() error {
	return e.Err
}

func (e *RunnerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewRunnerError creates a registry operation error.
func NewRunnerError(op, workflowID string, err error) *RunnerError {
	return &RunnerError{Op: op, WorkflowID: workflowID, Err: err}
}

// ActionExecutionError wraps an action's failure for one run. The engine
// records it in the run result; it never unwinds the run.
type ActionExecutionError struct {
	WorkflowID string // Workflow id
	ActionID   string // Failing action id
	Err        error  // Action-specific cause
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %s failed in workflow %s: %v", e.ActionID, e.WorkflowID, e.Err)
}

func (e *ActionExecutionError) Unwrap() error {
	return e.Err
}

func (e *ActionExecutionError) Is(target error) bool {
	return target == ErrActionExecution || errors.Is(e.Err, target)
}

// NewActionExecutionError wraps an action failure with its ids.
func NewActionExecutionError(workflowID, actionID string, err error) *ActionExecutionError {
	return &ActionExecutionError{WorkflowID: workflowID, ActionID: actionID, Err: err}
}

// IsDuplicateID checks if an error indicates an id collision.
func IsDuplicateID(err error) bool {
	return errors.Is(err, ErrDuplicateID)
}

// IsUnknownAction checks if an error indicates a dependency on a
// non-member action.
func IsUnknownAction(err error) bool {
	return errors.Is(err, ErrUnknownAction)
}

// IsCycle checks if an error indicates a rejected cyclic edge.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCycle)
}

// IsNotFound checks if an error indicates an unregistered workflow.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsWorkflowActive checks if an error indicates a structural change was
// rejected because triggers are listening.
func IsWorkflowActive(err error) bool {
	return errors.Is(err, ErrWorkflowActive)
}

// IsTriggerActivation checks if an error indicates a trigger start
// failure.
func IsTriggerActivation(err error) bool {
	return errors.Is(err, ErrTriggerActivation)
}
