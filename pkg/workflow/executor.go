package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskmaster-io/taskmaster/pkg/eventbus"
	"github.com/taskmaster-io/taskmaster/pkg/events"
	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/otelhelper"
)

// Executor runs one workflow to completion for one triggering event.
// Actions execute sequentially in topological order; a failed action
// skips its dependents but never aborts the run, so independent branches
// still finish. The event bus is optional: without one the executor just
// skips lifecycle notifications.
type Executor struct {
	logger   *slog.Logger
	eventBus eventbus.EventBus
	tracer   trace.Tracer
}

// NewExecutor creates an executor. eventBus may be nil for one-shot
// callers like the CLI.
func NewExecutor(logger *slog.Logger, eventBus eventbus.EventBus) *Executor {
	return &Executor{
		logger:   logger.With("module", "executor"),
		eventBus: eventBus,
		tracer:   otel.Tracer("taskmaster/workflow"),
	}
}

// Run executes the workflow for one event. The returned error is non-nil
// only when the run could not start at all (the structural re-check
// failed); action failures are contained and reported through the result
// map instead.
func (e *Executor) Run(ctx context.Context, wf *Workflow, eventData map[string]any) (*models.RunResult, error) {
	// The graph is validated on every edge addition, but the workflow may
	// have been mutated since, so the order is recomputed per run.
	order, err := wf.TopologicalOrder()
	if err != nil {
		e.logger.Error("Workflow graph failed structural check",
			"workflow_id", wf.ID(), "error", err)
		e.publishRunFailed(ctx, wf.ID(), "", err, 0)

		return nil, err
	}

	executionCtx := models.NewExecutionContext(wf.ID(), eventData)
	maps.Copy(executionCtx.Variables, wf.Variables())

	result := models.NewRunResult(executionCtx)

	logger := e.logger.With("workflow_id", wf.ID(), "run_id", executionCtx.ID)
	logger.Info("Starting workflow run", "actions", len(order))

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, wf.ID()),
		attribute.String(otelhelper.WorkflowNameKey, wf.Name()),
		attribute.String(otelhelper.RunIDKey, executionCtx.ID),
	)
	defer span.End()

	e.publish(ctx, wf.ID(), events.RunStarted{
		BaseEvent:   events.NewBaseEvent(events.RunStartedEvent, wf.ID()),
		RunID:       executionCtx.ID,
		TriggerData: executionCtx.TriggerData,
	})

	for _, action := range order {
		if blockerID, blocked := e.blockingDependency(wf, action.ID, result); blocked {
			result.Actions[action.ID] = &models.ActionResult{
				ActionID: action.ID,
				Status:   models.ActionStatusSkipped,
				Error:    fmt.Sprintf("dependency %s did not succeed", blockerID),
			}

			logger.Warn("Skipping action, dependency did not succeed",
				"action_id", action.ID, "dependency_id", blockerID)

			continue
		}

		actionResult := e.executeAction(ctx, action, executionCtx, logger)
		result.Actions[action.ID] = actionResult

		duration := actionResult.FinishedAt.Sub(actionResult.StartedAt)

		if actionResult.Status == models.ActionStatusSucceeded {
			executionCtx.ActionResults[action.ID] = actionResult.Value

			e.publish(ctx, wf.ID(), events.ActionFinished{
				BaseEvent: events.NewBaseEvent(events.ActionFinishedEvent, wf.ID()),
				RunID:     executionCtx.ID,
				ActionID:  action.ID,
				Duration:  duration,
			})
		} else {
			e.publish(ctx, wf.ID(), events.ActionFailed{
				BaseEvent: events.NewBaseEvent(events.ActionFailedEvent, wf.ID()),
				RunID:     executionCtx.ID,
				ActionID:  action.ID,
				Error:     actionResult.Error,
				Duration:  duration,
			})
		}
	}

	result.FinishedAt = time.Now().UTC()

	statuses := make(map[string]models.ActionStatus, len(result.Actions))
	for id, actionResult := range result.Actions {
		statuses[id] = actionResult.Status
	}

	e.publish(ctx, wf.ID(), events.RunFinished{
		BaseEvent:      events.NewBaseEvent(events.RunFinishedEvent, wf.ID()),
		RunID:          executionCtx.ID,
		Succeeded:      result.Succeeded(),
		ActionStatuses: statuses,
		Duration:       result.FinishedAt.Sub(result.StartedAt),
	})

	logger.Info("Workflow run completed",
		"succeeded", result.Succeeded(),
		"actions_succeeded", result.CountByStatus(models.ActionStatusSucceeded),
		"actions_failed", result.CountByStatus(models.ActionStatusFailed),
		"actions_skipped", result.CountByStatus(models.ActionStatusSkipped),
	)

	return result, nil
}

// blockingDependency reports the first dependency of actionID that did
// not succeed in this run. Topological order guarantees every dependency
// was already decided, so a missing entry counts as not succeeded.
func (e *Executor) blockingDependency(wf *Workflow, actionID string, result *models.RunResult) (string, bool) {
	for _, dependencyID := range wf.Dependencies(actionID) {
		dependencyResult, ok := result.Actions[dependencyID]
		if !ok || dependencyResult.Status != models.ActionStatusSucceeded {
			return dependencyID, true
		}
	}

	return "", false
}

// executeAction invokes one action and converts its outcome, including a
// panic, into an ActionResult. Nothing escapes to the surrounding run.
func (e *Executor) executeAction(ctx context.Context, action *Action, executionCtx *models.ExecutionContext, logger *slog.Logger) (actionResult *models.ActionResult) {
	actionResult = &models.ActionResult{
		ActionID:  action.ID,
		StartedAt: time.Now().UTC(),
	}

	actionLogger := logger.With("action_id", action.ID, "action_name", action.Name)
	actionLogger.Debug("Executing action")

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.action",
		attribute.String(otelhelper.WorkflowIDKey, executionCtx.WorkflowID),
		attribute.String(otelhelper.RunIDKey, executionCtx.ID),
		attribute.String(otelhelper.ActionIDKey, action.ID),
		attribute.String(otelhelper.ActionNameKey, action.Name),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("action panicked: %v", r)

			actionResult.Status = models.ActionStatusFailed
			actionResult.Error = NewActionExecutionError(executionCtx.WorkflowID, action.ID, panicErr).Error()
			actionResult.FinishedAt = time.Now().UTC()

			actionLogger.Error("Action panicked", "panic", r)
			otelhelper.SetError(span, panicErr)
		}
	}()

	value, err := action.Handler.Execute(ctx, executionCtx, actionLogger)
	actionResult.FinishedAt = time.Now().UTC()

	if err != nil {
		executionErr := NewActionExecutionError(executionCtx.WorkflowID, action.ID, err)

		actionResult.Status = models.ActionStatusFailed
		actionResult.Error = executionErr.Error()

		actionLogger.Error("Action failed", "error", err)
		otelhelper.SetError(span, err)

		return actionResult
	}

	actionResult.Status = models.ActionStatusSucceeded
	actionResult.Value = value

	actionLogger.Debug("Action succeeded")

	return actionResult
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.eventBus == nil {
		return
	}

	if err := e.eventBus.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (e *Executor) publishRunFailed(ctx context.Context, workflowID, runID string, err error, duration time.Duration) {
	e.publish(ctx, workflowID, events.RunFailed{
		BaseEvent: events.NewBaseEvent(events.RunFailedEvent, workflowID),
		RunID:     runID,
		Error:     err.Error(),
		Duration:  duration,
	})
}
