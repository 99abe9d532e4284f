package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/taskmaster-io/taskmaster/pkg/cmd"
	"github.com/taskmaster-io/taskmaster/pkg/config"
	"github.com/taskmaster-io/taskmaster/pkg/log"
	"github.com/taskmaster-io/taskmaster/pkg/models"
	"github.com/taskmaster-io/taskmaster/pkg/workflow"
)

// Static error variables for linter compliance.
var (
	ErrMissingWorkflowFile = errors.New("workflow definition file is required")
	ErrActionsNotSucceeded = errors.New("actions did not succeed")
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Run a workflow definition file",
		ArgsUsage: "<workflow-file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "validate-only",
				Usage: "Validate the definition and exit without running",
				Value: false,
			},
			&cli.BoolFlag{
				Name:  "wait",
				Usage: "Run the workflow once and wait for it to complete; with --wait=false the workflow runs from its triggers until interrupted",
				Value: true,
			},
			&cli.IntFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "Timeout in seconds for the run (0 for no timeout)",
				Value:   0,
			},
			&cli.StringFlag{
				Name:     "plugins-path",
				Usage:    "Path to the directory containing action and trigger plugins",
				Value:    "./plugins",
				Required: false,
				Sources:  cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("taskmaster")

			path := command.Args().First()
			if path == "" {
				return ErrMissingWorkflowFile
			}

			registry := cmd.NewRegistry(logger, command.String("plugins-path"))
			loader := config.NewLoader(logger, registry)

			def, err := loader.LoadFile(path)
			if err != nil {
				return err
			}

			wf, err := loader.Build(def)
			if err != nil {
				return fmt.Errorf("workflow definition %s is invalid: %w", path, err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Workflow definition is valid: %s (%s)\n", def.Name, def.ID)

			if command.Bool("validate-only") {
				return nil
			}

			if command.Bool("wait") {
				return runOnce(ctx, command, logger, wf)
			}

			return runFromTriggers(ctx, logger, wf)
		},
	}
}

// runOnce executes the workflow immediately and reports the per-action
// outcome. The exit status is non-zero when any action failed or was
// skipped.
func runOnce(ctx context.Context, command *cli.Command, logger *slog.Logger, wf *workflow.Workflow) error {
	executor := workflow.NewExecutor(logger, nil)
	runner := workflow.NewRunner(logger, executor, nil)

	if err := runner.Register(wf); err != nil {
		return err
	}

	if timeout := command.Int("timeout"); timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()
	}

	_, _ = fmt.Fprintf(os.Stdout, "Running workflow: %s\n", wf.Name())

	result, err := runner.RunNow(ctx, wf.ID(), nil)
	if err != nil {
		return fmt.Errorf("failed to run workflow: %w", err)
	}

	printRunResult(wf, result)

	if !result.Succeeded() {
		failed := result.CountByStatus(models.ActionStatusFailed)
		skipped := result.CountByStatus(models.ActionStatusSkipped)

		return fmt.Errorf("%w: %d failed, %d skipped", ErrActionsNotSucceeded, failed, skipped)
	}

	return nil
}

// runFromTriggers hosts the single workflow: its triggers are activated
// and each firing becomes a run, until the process is interrupted.
func runFromTriggers(ctx context.Context, logger *slog.Logger, wf *workflow.Workflow) error {
	eventBus := cmd.NewEventBus("gochannel", logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	executor := workflow.NewExecutor(logger, eventBus)
	runner := workflow.NewRunner(logger, executor, eventBus)

	if err := runner.Register(wf); err != nil {
		return err
	}

	if err := runner.Subscribe(ctx); err != nil {
		return err
	}

	if err := runner.Start(ctx, wf.ID()); err != nil {
		return fmt.Errorf("failed to activate workflow: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Workflow %s is running from its triggers. Press Ctrl+C to stop.\n", wf.ID())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	_, _ = fmt.Fprintln(os.Stdout, "Stopping workflow...")

	return runner.Stop(ctx, wf.ID())
}

// printRunResult writes the per-action outcome table in execution order.
func printRunResult(wf *workflow.Workflow, result *models.RunResult) {
	order, err := wf.TopologicalOrder()
	if err != nil {
		// The run already completed, so the graph cannot be broken here.
		return
	}

	_, _ = fmt.Fprintln(os.Stdout, "\nRun Results:")
	_, _ = fmt.Fprintln(os.Stdout, "============")
	_, _ = fmt.Fprintf(os.Stdout, "Run ID: %s\n", result.RunID)
	_, _ = fmt.Fprintf(os.Stdout, "Duration: %s\n\n", result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))

	for _, action := range order {
		actionResult, ok := result.Actions[action.ID]
		if !ok {
			continue
		}

		switch actionResult.Status {
		case models.ActionStatusSucceeded:
			_, _ = fmt.Fprintf(os.Stdout, "  ✅ %s (%s)\n", action.Name, action.ID)
		case models.ActionStatusFailed:
			_, _ = fmt.Fprintf(os.Stdout, "  ❌ %s (%s): %s\n", action.Name, action.ID, actionResult.Error)
		case models.ActionStatusSkipped:
			_, _ = fmt.Fprintf(os.Stdout, "  ⏭  %s (%s): %s\n", action.Name, action.ID, actionResult.Error)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "\nSucceeded: %d  Failed: %d  Skipped: %d\n",
		result.CountByStatus(models.ActionStatusSucceeded),
		result.CountByStatus(models.ActionStatusFailed),
		result.CountByStatus(models.ActionStatusSkipped),
	)
}
