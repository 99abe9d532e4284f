// Package schedule provides a cron-based trigger. Schedules are given
// either as standard five-field cron expressions or in the interval form
// "every N seconds|minutes|hours|days [at HH:MM]".
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/taskmaster-io/taskmaster/pkg/protocol"
)

type Trigger struct {
	ID         string
	WorkflowID string
	CronExpr   string
	Enabled    bool

	mu       sync.Mutex
	cron     *cron.Cron
	callback protocol.TriggerCallback
	logger   *slog.Logger
}

func NewTrigger(config map[string]any, logger *slog.Logger) (*Trigger, error) {
	id, _ := config["id"].(string)
	workflowID, _ := config["workflow_id"].(string)
	cronExpr, _ := config["cron"].(string)

	if interval, ok := config["interval"].(string); ok && interval != "" {
		if cronExpr != "" {
			return nil, errors.New("schedule trigger accepts either cron or interval, not both")
		}

		translated, err := translateInterval(interval)
		if err != nil {
			return nil, err
		}

		cronExpr = translated
	}

	enabled := true
	if enabledVal, ok := config["enabled"].(bool); ok {
		enabled = enabledVal
	}

	trigger := &Trigger{
		ID:         id,
		WorkflowID: workflowID,
		CronExpr:   cronExpr,
		Enabled:    enabled,
		logger: logger.With(
			"module", "schedule_trigger",
			"trigger_id", id,
			"workflow_id", workflowID,
			"cron", cronExpr,
		),
	}

	err := trigger.Validate()
	if err != nil {
		return nil, err
	}

	return trigger, nil
}

func (t *Trigger) Validate() error {
	if t.ID == "" {
		return errors.New("schedule trigger ID is required")
	}

	if t.CronExpr == "" {
		return errors.New("schedule trigger requires a cron or interval expression")
	}

	_, err := cron.ParseStandard(t.CronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	return nil
}

func (t *Trigger) Start(ctx context.Context, callback protocol.TriggerCallback) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.Enabled {
		t.logger.InfoContext(ctx, "Schedule trigger is disabled")

		return nil
	}

	if t.cron != nil {
		return nil
	}

	t.logger.InfoContext(ctx, "Starting schedule trigger")
	t.callback = callback

	t.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := t.cron.AddFunc(t.CronExpr, t.run)
	if err != nil {
		t.cron = nil

		return fmt.Errorf("failed to add cron job for trigger %s: %w", t.ID, err)
	}

	t.cron.Start()

	return nil
}

func (t *Trigger) run() {
	t.logger.Info("Schedule fired")

	triggerData := map[string]any{
		"trigger_id": t.ID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		err := t.callback(context.Background(), triggerData)
		if err != nil {
			t.logger.Error("Error executing workflow for trigger", "error", err)
		}
	}()
}

// Stop halts the cron scheduler. Stopping a trigger that never started is
// a no-op.
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cron == nil {
		return nil
	}

	t.logger.InfoContext(ctx, "Stopping schedule trigger")
	t.cron.Stop()
	t.cron = nil

	return nil
}
