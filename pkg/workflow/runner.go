package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/taskmaster-io/taskmaster/pkg/eventbus"
	"github.com/taskmaster-io/taskmaster/pkg/events"
	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

// Runner owns the registry of known workflows and mediates between
// trigger firings and the engine. Triggers never reach the engine
// directly: every firing is published as a WorkflowTriggered event and
// consumed by the runner's subscription, so runs are asynchronous and
// fire-and-forget from the trigger's point of view.
type Runner struct {
	id       string
	logger   *slog.Logger
	executor *Executor
	eventBus eventbus.EventBus

	mu        sync.RWMutex
	workflows map[string]*Workflow
}

// NewRunner creates a runner. eventBus may be nil when only explicit
// RunNow calls are needed; trigger-initiated runs require one.
func NewRunner(logger *slog.Logger, executor *Executor, eventBus eventbus.EventBus) *Runner {
	id := "runner-" + uuid.New().String()[:8]

	return &Runner{
		id:        id,
		logger:    logger.With("module", "runner", "runner_id", id),
		executor:  executor,
		eventBus:  eventBus,
		workflows: make(map[string]*Workflow),
	}
}

// ID returns the runner's process-unique id.
func (r *Runner) ID() string {
	return r.id
}

// Register adds a workflow to the registry. The check and the insert are
// one atomic step, so two racing registrations of the same id cannot
// both win.
func (r *Runner) Register(wf *Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[wf.ID()]; exists {
		return NewRunnerError("Register", wf.ID(), ErrDuplicateID)
	}

	r.workflows[wf.ID()] = wf
	r.logger.Info("Registered workflow", "workflow_id", wf.ID(), "workflow_name", wf.Name())

	return nil
}

// Unregister deactivates the workflow and removes it from the registry.
// The workflow is removed even when deactivation reported errors; those
// are returned so the caller knows some listener may not have stopped
// cleanly.
func (r *Runner) Unregister(ctx context.Context, workflowID string) error {
	wf, err := r.Get(workflowID)
	if err != nil {
		return err
	}

	deactivateErr := wf.Deactivate(ctx)

	r.mu.Lock()
	delete(r.workflows, workflowID)
	r.mu.Unlock()

	r.logger.Info("Unregistered workflow", "workflow_id", workflowID)

	return deactivateErr
}

// Get returns the registered workflow for an id.
func (r *Runner) Get(workflowID string) (*Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wf, exists := r.workflows[workflowID]
	if !exists {
		return nil, NewRunnerError("Get", workflowID, ErrWorkflowNotFound)
	}

	return wf, nil
}

// Start activates a workflow's triggers, binding each one to a callback
// that publishes its firings onto the event bus.
func (r *Runner) Start(ctx context.Context, workflowID string) error {
	wf, err := r.Get(workflowID)
	if err != nil {
		return err
	}

	if err := wf.Activate(ctx, r.binder(wf)); err != nil {
		return err
	}

	r.logger.Info("Started workflow", "workflow_id", workflowID)

	return nil
}

// Stop deactivates a workflow's triggers. Stopping an already-inactive
// workflow is a no-op.
func (r *Runner) Stop(ctx context.Context, workflowID string) error {
	wf, err := r.Get(workflowID)
	if err != nil {
		return err
	}

	if err := wf.Deactivate(ctx); err != nil {
		return err
	}

	r.logger.Info("Stopped workflow", "workflow_id", workflowID)

	return nil
}

// StartAll activates every registered workflow, attempting all of them
// and returning the collected failures.
func (r *Runner) StartAll(ctx context.Context) error {
	var errs []error

	for _, wf := range r.snapshot() {
		if err := r.Start(ctx, wf.ID()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// StopAll deactivates every registered workflow, attempting all of them
// and returning the collected failures.
func (r *Runner) StopAll(ctx context.Context) error {
	var errs []error

	for _, wf := range r.snapshot() {
		if err := r.Stop(ctx, wf.ID()); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// RunNow executes a workflow synchronously, bypassing its triggers. It
// works the same whether the workflow is active or not.
func (r *Runner) RunNow(ctx context.Context, workflowID string, eventData map[string]any) (*models.RunResult, error) {
	wf, err := r.Get(workflowID)
	if err != nil {
		return nil, err
	}

	return r.executor.Run(ctx, wf, eventData)
}

// List returns a summary of every registered workflow, ordered by id.
func (r *Runner) List() []*models.WorkflowSummary {
	workflows := r.snapshot()

	summaries := make([]*models.WorkflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		summaries = append(summaries, wf.Summary())
	}

	return summaries
}

// Status returns the summary of one registered workflow.
func (r *Runner) Status(workflowID string) (*models.WorkflowSummary, error) {
	wf, err := r.Get(workflowID)
	if err != nil {
		return nil, err
	}

	return wf.Summary(), nil
}

// Subscribe wires the runner into the event bus and starts consuming
// trigger firings. Call it once after registering workflows; it returns
// after the consuming loop is set up.
func (r *Runner) Subscribe(ctx context.Context) error {
	if r.eventBus == nil {
		return errors.New("runner has no event bus to subscribe on")
	}

	if err := r.eventBus.Handle(events.WorkflowTriggeredEvent, r.handleWorkflowTriggered); err != nil {
		return err
	}

	return r.eventBus.Subscribe(ctx)
}

// binder produces the per-trigger callback used during activation: each
// firing becomes a WorkflowTriggered event on the bus.
func (r *Runner) binder(wf *Workflow) TriggerBinder {
	return func(t *Trigger) protocol.TriggerCallback {
		workflowID := wf.ID()
		triggerID := t.ID

		return func(ctx context.Context, data map[string]any) error {
			if r.eventBus == nil {
				r.logger.Error("Trigger fired but no event bus is configured, dropping event",
					"workflow_id", workflowID, "trigger_id", triggerID)

				return errors.New("no event bus configured")
			}

			event := events.WorkflowTriggered{
				BaseEvent:   events.NewBaseEvent(events.WorkflowTriggeredEvent, workflowID),
				TriggerID:   triggerID,
				TriggerData: data,
			}
			event.RunnerID = r.id

			return r.eventBus.Publish(ctx, workflowID, event)
		}
	}
}

// handleWorkflowTriggered turns one trigger firing into one engine run.
// Failures are logged and the message acked: an unknown workflow or a
// structurally broken graph will not become valid by redelivery.
func (r *Runner) handleWorkflowTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.WorkflowTriggered)
	if !ok {
		return errors.New("unexpected payload for workflow.triggered event")
	}

	logger := r.logger.With(
		"workflow_id", triggered.WorkflowID,
		"trigger_id", triggered.TriggerID,
	)

	wf, err := r.Get(triggered.WorkflowID)
	if err != nil {
		logger.Error("Trigger fired for unregistered workflow", "error", err)

		return nil
	}

	result, err := r.executor.Run(ctx, wf, triggered.TriggerData)
	if err != nil {
		logger.Error("Trigger-initiated run failed to start", "error", err)

		return nil
	}

	logger.Info("Trigger-initiated run completed",
		"run_id", result.RunID, "succeeded", result.Succeeded())

	return nil
}

func (r *Runner) snapshot() []*Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*Workflow, 0, len(r.workflows))
	for _, wf := range r.workflows {
		workflows = append(workflows, wf)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].ID() < workflows[j].ID()
	})

	return workflows
}
